package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ftnirs/adapters/ingest"
	"ftnirs/domain/dataset"
	"ftnirs/internal/artifact"
	"ftnirs/internal/config"
	"ftnirs/internal/infer"
	"ftnirs/internal/ledger"
	"ftnirs/internal/logging"
	"ftnirs/internal/train"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ftnirs",
		Short: "FT-NIR spectral age estimation pipeline",
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newTrainCmd(),
		newPredictCmd(),
		newHistoryCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	var impute bool

	cmd := &cobra.Command{
		Use:   "validate [table]",
		Short: "Check a specimen table against the wide-table contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ingest.Read(args[0])
			if err != nil {
				return err
			}
			if impute {
				if n := f.ImputeMissing(); n > 0 {
					fmt.Printf("imputed %d missing cells with column means\n", n)
				}
			}
			if err := f.ValidateSchema(); err != nil {
				return err
			}
			fmt.Printf("ok: %d rows, %d columns, %d training / %d test\n",
				f.Rows(), len(f.Columns),
				len(f.PartitionRows(dataset.TagTraining)),
				len(f.PartitionRows(dataset.TagTest)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&impute, "impute", false, "Replace missing values with column means before validating")
	return cmd
}

func newTrainCmd() *cobra.Command {
	var (
		filterName  string
		scalerName  string
		mode        string
		strategy    string
		paramsJSON  string
		fromPath    string
		outputPath  string
		description string
		impute      bool
	)

	cmd := &cobra.Command{
		Use:   "train [table]",
		Short: "Train an age model on a specimen table",
		Long: `Train an age model on a specimen table.

Modes:
  search    pick the topology with a hyperparameter search (default)
  manual    build the topology from --params, a JSON list of 8 values
  finetune  continue training the model persisted at --from

Example: ftnirs train specimens.csv --mode manual --params '[1,101,51,0.1,false,50,256,0.0]' --output model.gob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.NewDefault()

			f, err := ingest.Read(args[0])
			if err != nil {
				return err
			}
			if impute {
				if n := f.ImputeMissing(); n > 0 {
					log.Info("imputed %d missing cells with column means", n)
				}
			}

			o := train.New(cfg.Training, log)
			if cfg.Ledger.Enabled {
				l, err := ledger.Open(cfg.Ledger.Path, log)
				if err != nil {
					return err
				}
				defer l.Close()
				o.Ledger = l
			}

			var res *train.Result
			switch mode {
			case "search", "":
				res, err = o.TrainSearchDriven(f, filterName, scalerName, train.Strategy(strategy))
			case "manual":
				var params []interface{}
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params, expected a JSON list: %w", err)
				}
				res, err = o.TrainManual(f, filterName, scalerName, params)
			case "finetune":
				res, err = o.TrainFinetune(f, filterName, scalerName, fromPath)
			default:
				return fmt.Errorf("unknown mode %q (search, manual or finetune)", mode)
			}
			if err != nil {
				return err
			}

			eval := res.Evaluation
			fmt.Printf("approach=%s filter=%s scaler=%s epochs_run=%d\n",
				res.Approach, res.Filter, res.ScalerKind, len(res.History.Loss))
			fmt.Printf("test: r2=%.4f mse=%.6f mae=%.6f\n", eval.R2, eval.MSE, eval.MAE)

			if outputPath != "" {
				prior := fromPath
				if err := artifact.Save(outputPath, res.Model, prior,
					f.Columns, description, res.Approach, res.ScalerX, res.ScalerY); err != nil {
					return err
				}
				fmt.Printf("saved artifact to %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filterName, "filter", "savgol", "Spectral filter (savgol, moving_average, gaussian, median, wavelet, fourier, pca)")
	cmd.Flags().StringVar(&scalerName, "scaler", "standard", "Column scaler (standard, minmax, maxabs, robust, normalize)")
	cmd.Flags().StringVar(&mode, "mode", "search", "Training mode (search, manual, finetune)")
	cmd.Flags().StringVar(&strategy, "strategy", "hyperband", "Search strategy (hyperband, bayesian)")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "Manual mode: JSON list of 8 topology values")
	cmd.Flags().StringVar(&fromPath, "from", "", "Finetune mode: artifact to continue from")
	cmd.Flags().StringVar(&outputPath, "output", "", "Artifact path to save the trained model to")
	cmd.Flags().StringVar(&description, "description", "", "Free-form note stored in the artifact metadata")
	cmd.Flags().BoolVar(&impute, "impute", false, "Replace missing values with column means before training")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var row int

	cmd := &cobra.Command{
		Use:   "predict [artifact] [table]",
		Short: "Predict the age of one specimen row with a persisted model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ingest.Read(args[1])
			if err != nil {
				return err
			}
			pred, err := infer.PredictRowFromArtifact(args[0], f, row)
			if err != nil {
				return err
			}
			fmt.Printf("row %d (%s): predicted age %.3f\n", row, f.Filenames[row], pred)
			return nil
		},
	}

	cmd.Flags().IntVar(&row, "row", 0, "Zero-based row index to predict")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [artifact]",
		Short: "Print the metadata history of a model artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := artifact.History(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(history, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newRunsCmd() *cobra.Command {
	var ledgerPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ledgerPath
			if path == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if !cfg.Ledger.Enabled {
					return fmt.Errorf("no ledger configured; set FTNIRS_LEDGER_PATH or pass --ledger")
				}
				path = cfg.Ledger.Path
			}

			l, err := ledger.Open(path, logging.NewDefault())
			if err != nil {
				return err
			}
			defer l.Close()

			entries, err := l.Runs()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tAPPROACH\tFILTER\tSCALER\tEPOCHS\tR2\tRMSE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\t%.4f\n",
					e.CreatedAt.Format("2006-01-02 15:04"), e.Approach, e.Filter, e.Scaler,
					e.Epochs, e.TestR2, e.TestRMSE)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Run ledger database path (defaults to FTNIRS_LEDGER_PATH)")
	return cmd
}

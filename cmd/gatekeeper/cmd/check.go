package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/gatekeeper/internal/conditions"
)

// errRejected makes check exit non-zero when any row was rejected.
var errRejected = errors.New("condition rows rejected")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load conditions from the store and report every rejected row",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	src, err := store.LoadSource(cmd.Context())
	if err != nil {
		return err
	}
	report := conditions.NewEngine().Reload(src)
	return printReport(cmd, report)
}

func printReport(cmd *cobra.Command, report conditions.Report) error {
	out := cmd.OutOrStdout()
	st := report.Stats
	fmt.Fprintf(out, "load %s: %d lists, %d predicates, %d player conditions, %d unit conditions, %d expressions\n",
		report.LoadID, st.Lists, st.Predicates, st.PlayerConditions, st.UnitConditions, st.Expressions)
	for _, r := range report.Rejections {
		if r.ID != 0 {
			fmt.Fprintf(out, "%s[%d] id %d: %v\n", r.Table, r.Row, r.ID, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s[%d]: %v\n", r.Table, r.Row, r.Err)
	}
	if len(report.Disabled) > 0 {
		fmt.Fprintf(out, "disabled player conditions: %v\n", report.Disabled)
	}
	if len(report.Rejections) > 0 {
		return fmt.Errorf("%w: %d", errRejected, len(report.Rejections))
	}
	return nil
}

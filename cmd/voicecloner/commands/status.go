package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/cli"
	"github.com/PlumbMonkey/voice-cloner/pkg/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workflow state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		st := app.Controller.Status()
		if !textOutput() {
			return outputResult(st)
		}

		items := make([]cli.Item, 0, len(workflow.Phases))
		for _, p := range workflow.Phases {
			it := cli.Item{Label: p.Flag(), Done: st.Done(p)}
			switch p {
			case workflow.PhaseDetect:
				it.Detail = st.Device
			case workflow.PhasePreprocess:
				if st.Segments > 0 {
					it.Detail = fmt.Sprintf("%d segments", st.Segments)
				}
			case workflow.PhaseTrain:
				it.Detail = st.Checkpoint
			}
			items = append(items, it)
		}
		footer := "all phases complete"
		if next, ok := st.Next(); ok {
			footer = "next: voicecloner " + next.String()
		}
		fmt.Fprintln(os.Stdout, cli.Checklist{
			Styles: cli.NewStyles(cli.DefaultTheme),
			Title:  "voicecloner · " + app.Config.Paths.Project,
			Items:  items,
			Footer: footer,
		}.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/svc"
)

// PlayersCmd lists the local player directory.
func PlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List known players and their dashboard mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := svc.NewServiceContext(cfg, Version)
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			players, err := svcCtx.Store.ListPlayers(context.Background())
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Println("No players recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tREMOTE ID\tCREATED")
			for _, p := range players {
				remote := p.RemoteID
				if remote == "" {
					remote = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.Email, remote, p.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

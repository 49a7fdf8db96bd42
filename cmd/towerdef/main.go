package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/server"
	"github.com/sinedd777/towerdef/internal/topicmgr"
	"github.com/sinedd777/towerdef/internal/websocket"
)

// Version is set at build time.
// Example: go build -ldflags "-X 'main.Version=v1.2.3'"
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "towerdef",
		Short: "Authoritative backend for the cooperative tower defense game",
	}

	root.AddCommand(serveCmd(), topicsCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		Run: func(cmd *cobra.Command, args []string) {
			server.New().Start()
		},
	}
}

func topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List every declared pub/sub topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Declarations live in module packages; registration makes them
			// visible to the listing.
			if err := game.RegisterTopics(); err != nil {
				return err
			}
			if err := matchmaking.RegisterTopics(); err != nil {
				return err
			}
			if err := websocket.RegisterTopics(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tSCOPE\tMODULE\tDESCRIPTION")
			for _, t := range topicmgr.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name(), t.Scope(), t.Module(), t.Description())
			}
			return w.Flush()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

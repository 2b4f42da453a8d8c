package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/gatekeeper/internal/core/auth"
	"github.com/solatis/gatekeeper/internal/core/config"
	"github.com/solatis/gatekeeper/internal/core/server"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask a running server to reload from its store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAdmin(cmd, (*server.AdminClient).Reload)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics of a running server's snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAdmin(cmd, (*server.AdminClient).Stats)
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd, statsCmd)
}

type adminCall func(*server.AdminClient, context.Context, ...grpc.CallOption) (*structpb.Struct, error)

func callAdmin(cmd *cobra.Command, call adminCall) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(cfg.Admin.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Admin.Addr(), err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Admin.RequestTimeout)
	defer cancel()
	ctx = auth.WithToken(ctx, config.AdminToken())

	resp, err := call(server.NewAdminClient(conn), ctx)
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

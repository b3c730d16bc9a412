package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/facegate/internal/app"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/pkg/logger"
)

func newRecognizeCmd(c *cli) *cobra.Command {
	var (
		mode   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "recognize <image>...",
		Short: "Recognize the faces in still images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecognize(cmd.Context(), c, cmd.OutOrStdout(), args, mode, asJSON)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "matching mode: single or quorum (default: matching.mode)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per image")
	return cmd
}

type recognizeLine struct {
	File string `json:"file"`
	service.Outcome
}

func runRecognize(ctx context.Context, c *cli, out io.Writer, files []string, mode string, asJSON bool) error {
	svc := service.New(service.WithConfig(c.cfg), service.WithLogger(c.log))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer stopService(svc, c)

	var lines []recognizeLine
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		frame, err := imaging.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		outcome, err := svc.Recognize(ctx, frame, mode)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		lines = append(lines, recognizeLine{File: file, Outcome: outcome})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		for _, l := range lines {
			if err := enc.Encode(l); err != nil {
				return err
			}
		}
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tIDENTITY\tCONFIDENCE\tACCESS")
	for _, l := range lines {
		access := "denied"
		if l.Granted {
			access = "granted"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\n", l.File, l.Status, l.Identity, l.Confidence, access)
	}
	return w.Flush()
}

// stopService drains pending announcements before the process exits.
func stopService(svc *service.Service, c *cli) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		c.log.Warn(ctx, "service shutdown failed", logger.Error(err))
	}
}

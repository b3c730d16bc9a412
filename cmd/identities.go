package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	service "github.com/okian/facegate/internal/app"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
)

var errNothingToImport = errors.New("no identity directories found")

func newIdentitiesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identities",
		Short: "Manage enrolled identities",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List enrolled identities",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runList(cmd.Context(), c, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove an enrolled identity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRemove(cmd.Context(), c, cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "import <dir>",
			Short: "Enroll every <dir>/<name>/<pose>[-n].<ext> image set",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImport(cmd.Context(), c, cmd.OutOrStdout(), args[0])
			},
		},
	)
	return cmd
}

func runList(ctx context.Context, c *cli, out io.Writer) error {
	catalog, err := service.OpenCatalog(ctx, c.cfg, c.log.Named("catalog"))
	if err != nil {
		return err
	}
	defer catalog.Close()

	ids := catalog.Identities()
	if len(ids) == 0 {
		fmt.Fprintln(out, "No identities enrolled.")
		return nil
	}
	slices.SortFunc(ids, func(a, b model.EnrolledIdentity) int { return strings.Compare(a.Name, b.Name) })

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMBEDDING\tPOSE IMAGES\tENROLLED")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", id.Name, id.HasEmbedding(), id.ReferenceCount(),
			id.EnrolledAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runRemove(ctx context.Context, c *cli, out io.Writer, name string) error {
	catalog, err := service.OpenCatalog(ctx, c.cfg, c.log.Named("catalog"))
	if err != nil {
		return err
	}
	defer catalog.Close()

	if err := catalog.Remove(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s.\n", name)
	return nil
}

func runImport(ctx context.Context, c *cli, out io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", dir, errNothingToImport)
	}

	svc := service.New(service.WithConfig(c.cfg), service.WithLogger(c.log))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer stopService(svc, c)

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetDescription("Importing identities"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	var failed int
	for _, name := range names {
		frames, err := readPoseFrames(filepath.Join(dir, name), svc.Poses())
		if err == nil {
			_, err = svc.Import(ctx, name, frames)
		}
		if err != nil {
			failed++
			c.log.Warn(ctx, "identity import failed", logger.String("name", name), logger.Error(err))
		}
		_ = bar.Add(1)
		if ctx.Err() != nil {
			break
		}
	}
	_ = bar.Finish()
	fmt.Fprintf(out, "\nImported %d of %d identities.\n", len(names)-failed, len(names))
	return ctx.Err()
}

// readPoseFrames loads <pose>.<ext> and <pose>-<n>.<ext> files in name
// order. Files naming an unknown pose are skipped.
func readPoseFrames(dir string, poses []model.Pose) (map[model.Pose][]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	frames := make(map[model.Pose][]image.Image, len(poses))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		pose, ok := poseOf(e.Name(), poses)
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		frames[pose] = append(frames[pose], img)
	}
	return frames, nil
}

func poseOf(file string, poses []model.Pose) (model.Pose, bool) {
	base := strings.ToLower(strings.TrimSuffix(file, filepath.Ext(file)))
	if i := strings.LastIndexByte(base, '-'); i > 0 {
		base = base[:i]
	}
	for _, p := range poses {
		if string(p) == base {
			return p, true
		}
	}
	return "", false
}

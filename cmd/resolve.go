package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/importer"
	"github.com/sells-group/territory-cli/internal/territory"
)

var resolveFile string

var resolveCmd = &cobra.Command{
	Use:   "resolve [address...]",
	Short: "Resolve addresses to their responsible installer",
	Long: "Resolves each address argument, or every request in --file, against one snapshot of the assignment set. " +
		"A .json file holds an array of {id, address, geo} requests; any other file holds one address per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reqs := make([]territory.Request, 0, len(args))
		for i, a := range args {
			reqs = append(reqs, territory.Request{ID: strconv.Itoa(i + 1), Address: a})
		}
		if resolveFile != "" {
			fromFile, err := readRequests(ctx, resolveFile)
			if err != nil {
				return err
			}
			reqs = append(reqs, fromFile...)
		}
		if len(reqs) == 0 {
			return eris.New("resolve: pass at least one address or --file")
		}

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Service.ResolveBatch(ctx, reqs)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}
		return printJSON(cmd, results)
	},
}

func readRequests(ctx context.Context, path string) ([]territory.Request, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, eris.Wrap(err, "resolve: open file")
	}
	defer f.Close() //nolint:errcheck

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return decodeRequests(ctx, f)
	}

	var reqs []territory.Request
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		addr := strings.TrimSpace(sc.Text())
		if addr == "" || strings.HasPrefix(addr, "#") {
			continue
		}
		reqs = append(reqs, territory.Request{ID: filepath.Base(path) + ":" + strconv.Itoa(line), Address: addr})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "resolve: read file")
	}
	return reqs, nil
}

func decodeRequests(ctx context.Context, r io.Reader) ([]territory.Request, error) {
	outCh, errCh := importer.DecodeJSONArray[territory.Request](ctx, r)
	var reqs []territory.Request
	for req := range outCh {
		reqs = append(reqs, req)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "resolve: decode requests")
	}
	return reqs, nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "file of addresses (one per line) or JSON requests")
	rootCmd.AddCommand(resolveCmd)
}

package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reoring/restmap"
)

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Fetch one resource by id",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List resources",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var (
	getParams  map[string]string
	listParams map[string]string
	listLimit  int
)

func init() {
	rootCmd.AddCommand(getCmd, listCmd)

	getCmd.Flags().StringToStringVar(&getParams, "param", nil, "query parameter (key=value), repeatable")
	listCmd.Flags().StringToStringVar(&listParams, "param", nil, "query parameter (key=value), repeatable")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "stop after this many resources (0 = all)")
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	t, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	r, err := restmap.NewRepository(a.m, t).Get(cmd.Context(), parseID(args[1]), anyMap(getParams))
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), r, dump)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	t, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	n := 0
	for r, err := range restmap.NewRepository(a.m, t).Filter(anyMap(listParams)).All(cmd.Context()) {
		if err != nil {
			return err
		}
		if err := render(cmd.OutOrStdout(), r, dump); err != nil {
			return err
		}
		n++
		if listLimit > 0 && n >= listLimit {
			break
		}
	}
	a.log.Debug().Str("type", t.QualifiedName()).Int("count", n).Msg("listed")
	return nil
}

// parseID keeps numeric ids numeric so they match ids decoded from payloads.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func anyMap(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

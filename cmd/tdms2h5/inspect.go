package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/spf13/cobra"
)

// Containers are three levels deep (root, Slices, per-ordinal groups);
// the cap only guards against walking a foreign file.
const maxInspectDepth = 8

var inspectCmd = &cobra.Command{
	Use:   "inspect <container.h5>",
	Short: "Print the hierarchy of a converted container",
	Long: `Walks an HDF5 container produced by convert and prints every group,
dataset, and attribute, including attribute values. Useful for checking
what a conversion wrote without reaching for external HDF5 tooling.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := hdf5.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (superblock v%d)\n", args[0], f.Version())
	return printGroup(out, f.Root(), 0)
}

func printGroup(w io.Writer, g *hdf5.Group, depth int) error {
	if depth > maxInspectDepth {
		fmt.Fprintf(w, "%s...\n", strings.Repeat("  ", depth))
		return nil
	}

	indent := strings.Repeat("  ", depth)
	name := g.Name()
	if name != "/" {
		name += "/"
	}
	fmt.Fprintf(w, "%s%s\n", indent, name)
	printAttrs(w, indent+"  ", g.Attrs(), g.Attr)

	members, err := g.Members()
	if err != nil {
		return fmt.Errorf("listing %s: %w", g.Path(), err)
	}
	for _, m := range members {
		if sub, err := g.OpenGroup(m); err == nil {
			if err := printGroup(w, sub, depth+1); err != nil {
				return err
			}
			continue
		}
		ds, err := g.OpenDataset(m)
		if err != nil {
			return fmt.Errorf("opening %s/%s: %w", g.Path(), m, err)
		}
		printDataset(w, indent+"  ", ds)
	}
	return nil
}

func printDataset(w io.Writer, indent string, ds *hdf5.Dataset) {
	fmt.Fprintf(w, "%s%s  %s%v\n", indent, ds.Name(), datasetType(ds), ds.Shape())
	printAttrs(w, indent+"  ", ds.Attrs(), ds.Attr)
}

func datasetType(ds *hdf5.Dataset) string {
	t, err := ds.GoType()
	if err != nil {
		return "?"
	}
	return t.String()
}

func printAttrs(w io.Writer, indent string, names []string, attr func(string) *hdf5.Attribute) {
	for _, name := range names {
		a := attr(name)
		if a == nil {
			continue
		}
		v, err := a.Value()
		if err != nil {
			fmt.Fprintf(w, "%s%s = <unreadable: %v>\n", indent, name, err)
			continue
		}
		fmt.Fprintf(w, "%s%s = %s\n", indent, name, attrString(v))
	}
}

func attrString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strconv.Quote(s)
	case []string:
		quoted := make([]string, len(s))
		for i, e := range s {
			quoted[i] = strconv.Quote(e)
		}
		return "[" + strings.Join(quoted, " ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

package reorg

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// sliceName anchors the ordinal to the end of the file name, so prefixed
// captures like Build7_Slice00122.tdms still resolve to 122.
var sliceName = regexp.MustCompile(`Slice(\d+)\.tdms$`)

// Slice is one located build layer input.
type Slice struct {
	Ordinal int    // position in the build order, derived from the file name
	Path    string // path to the capture file
}

// Rejected is a capture file the locator could not place in the build
// order. Rejections are diagnostics, not failures; the scan proceeds
// without them.
type Rejected struct {
	Path   string
	Reason string
}

// Scan is the outcome of locating slices in a source directory.
type Scan struct {
	Slices   []Slice    // ascending ordinal order
	Rejected []Rejected // directory order
}

// Locate scans dir (non-recursively) for slice capture files and derives
// each file's build ordinal from its name. Files without a .tdms
// extension are ignored; .tdms files whose name yields no ordinal are
// reported in [Scan.Rejected]. The returned slices are sorted by
// ascending ordinal.
//
// Locate fails with a [DiscoveryError] when the directory cannot be
// read, when no slice file is found, or when two files claim the same
// ordinal (the build order would be ambiguous).
func Locate(dir string) (*Scan, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Reason: "cannot read source directory", Err: err}
	}

	scan := &Scan{}
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tdms") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ordinal, ok := ParseOrdinal(entry.Name())
		if !ok {
			scan.Rejected = append(scan.Rejected, Rejected{
				Path:   path,
				Reason: "no Slice<digits> ordinal in file name",
			})
			continue
		}
		if prev, dup := seen[ordinal]; dup {
			return nil, &DiscoveryError{
				Dir:    dir,
				Reason: fmt.Sprintf("ordinal %d claimed by both %s and %s", ordinal, filepath.Base(prev), entry.Name()),
			}
		}
		seen[ordinal] = path
		scan.Slices = append(scan.Slices, Slice{Ordinal: ordinal, Path: path})
	}

	if len(scan.Slices) == 0 {
		reason := "no slice files found"
		if n := len(scan.Rejected); n > 0 {
			reason = fmt.Sprintf("no slice files found (%d unrecognized .tdms inputs)", n)
		}
		return nil, &DiscoveryError{Dir: dir, Reason: reason}
	}

	sort.Slice(scan.Slices, func(i, j int) bool {
		return scan.Slices[i].Ordinal < scan.Slices[j].Ordinal
	})
	return scan, nil
}

// ParseOrdinal derives a build ordinal from a slice file name. Leading
// zeros are insignificant: Slice00122.tdms and a hypothetical
// Slice122.tdms both resolve to 122. The second result is false when the
// name carries no ordinal or the digits overflow an int.
func ParseOrdinal(name string) (int, bool) {
	m := sliceName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	ordinal, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return ordinal, true
}

// Package procmaps reads the kernel's per-process memory map to find
// the load bias of a traced executable.
//
// Grounded on the original debugger's linux_maps module (regex over
// /proc/<pid>/maps, minimum of the matching start addresses).
package procmaps

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mdbg-go/mdbg/internal/dbgerr"
)

// LoadAddr returns the lowest virtual address at which executablePath
// is mapped into pid's address space.
func LoadAddr(pid int, executablePath string) (uint64, error) {
	path := fmt.Sprintf("/proc/%d/maps", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, dbgerr.Wrapf(dbgerr.MapsUnreadable, err, "procmaps: read %s", path)
	}

	var (
		min   uint64
		found bool
	)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		// Anonymous/unnamed mappings have no trailing path field; skip
		// them rather than risk matching the permissions/offset columns.
		mappedPath := fields[len(fields)-1]
		if mappedPath != executablePath {
			continue
		}

		startHex, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		addr, err := strconv.ParseUint(startHex, 16, 64)
		if err != nil {
			continue
		}
		if !found || addr < min {
			min, found = addr, true
		}
	}

	if !found {
		return 0, dbgerr.Newf(dbgerr.NoMapping, "procmaps: no mapping of %q in pid %d", executablePath, pid)
	}
	return min, nil
}

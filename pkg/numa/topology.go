package numa

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const sysNodePath = "/sys/devices/system/node"

// Topology describes the machine's node layout as read from sysfs.
type Topology struct {
	nodes   []int
	cpuNode map[int]int
	nodeCPU map[int][]int
}

// Detect reads the node topology from /sys/devices/system/node.
func Detect() (*Topology, error) {
	entries, err := os.ReadDir(sysNodePath)
	if err != nil {
		return nil, err
	}
	topo := &Topology{
		cpuNode: make(map[int]int),
		nodeCPU: make(map[int][]int),
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "node"))
		if err != nil {
			continue
		}
		topo.nodes = append(topo.nodes, id)
		data, err := os.ReadFile(filepath.Join(sysNodePath, entry.Name(), "cpulist"))
		if err != nil {
			continue
		}
		cpus := parseCPUList(strings.TrimSpace(string(data)))
		topo.nodeCPU[id] = cpus
		for _, cpu := range cpus {
			topo.cpuNode[cpu] = id
		}
	}
	if len(topo.nodes) == 0 {
		return nil, errors.New("numa: no nodes found in sysfs")
	}
	sort.Ints(topo.nodes)
	return topo, nil
}

// Available reports whether the machine exposes at least one node.
func Available() bool {
	topo, err := Detect()
	return err == nil && len(topo.nodes) > 0
}

// Nodes lists the node ids in ascending order.
func (t *Topology) Nodes() []int {
	return t.nodes
}

// NodeOf reports the node the given cpu belongs to.
func (t *Topology) NodeOf(cpu int) (int, bool) {
	node, ok := t.cpuNode[cpu]
	return node, ok
}

// CPUsOf lists the cpus attached to node, nil for an unknown node.
func (t *Topology) CPUsOf(node int) []int {
	return t.nodeCPU[node]
}

// parseCPUList expands the sysfs cpulist syntax, e.g. "0-3,8".
func parseCPUList(list string) []int {
	var cpus []int
	if list == "" {
		return cpus
	}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				continue
			}
			for i := start; i <= end; i++ {
				cpus = append(cpus, i)
			}
			continue
		}
		cpu, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		cpus = append(cpus, cpu)
	}
	return cpus
}

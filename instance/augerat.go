// Package instance reads Augerat CVRP instance files into a coordinate
// map. Only the header fields and NODE_COORD_SECTION are used; parsing
// stops at DEMAND_SECTION.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mobius-scheduler/cvrp/common"
)

var ErrNoCoordSection = errors.New("no NODE_COORD_SECTION")

const (
	coordSection  = "NODE_COORD_SECTION"
	demandSection = "DEMAND_SECTION"
)

// schema for a parsed instance
// Capacity is the vehicle load from the header; the solver's capacity
// is a route length and does not come from here.
type Instance struct {
	Name     string          `json:"name"`
	Comment  string          `json:"comment,omitempty"`
	Type     string          `json:"type,omitempty"`
	Capacity int             `json:"capacity,omitempty"`
	Coords   common.CoordMap `json:"coords"`
}

// number of customers (depot excluded)
func (i *Instance) Customers() int {
	return len(i.Coords.Customers())
}

func ParseFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse instance: %w", err)
	}
	defer f.Close()

	inst, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse instance %s: %w", path, err)
	}
	if inst.Name == "" {
		inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return inst, nil
}

func Parse(r io.Reader) (*Instance, error) {
	inst := &Instance{Coords: make(common.CoordMap)}
	in_coords := false
	found := false
	line_no := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line_no++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, demandSection) {
			break
		}
		if in_coords {
			id, loc, err := parseNode(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line_no, err)
			}
			if _, dup := inst.Coords[id]; dup {
				return nil, fmt.Errorf("line %d: duplicate node %d", line_no, id)
			}
			inst.Coords[id] = loc
			continue
		}
		if strings.Contains(line, coordSection) {
			in_coords = true
			found = true
			continue
		}
		if err := inst.parseHeader(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", line_no, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, ErrNoCoordSection
	}
	if !inst.Coords.HasDepot() {
		return nil, fmt.Errorf("node %d (depot) missing", common.Depot)
	}
	return inst, nil
}

// parse "id x y"
func parseNode(line string) (int, common.Location, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, common.Location{}, fmt.Errorf("want \"id x y\", got %q", line)
	}

	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return 0, common.Location{}, fmt.Errorf("node field %q: %w", f, err)
		}
		vals[i] = v
	}
	if vals[0] < 1 {
		return 0, common.Location{}, fmt.Errorf("node id %d not positive", vals[0])
	}
	return vals[0], common.Location{X: vals[1], Y: vals[2]}, nil
}

// parse "KEY : value" header lines; unknown keys are ignored
func (i *Instance) parseHeader(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "NAME":
		i.Name = value
	case "COMMENT":
		i.Comment = strings.Trim(value, "()")
	case "TYPE":
		i.Type = value
	case "CAPACITY":
		c, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("capacity %q: %w", value, err)
		}
		i.Capacity = c
	}
	return nil
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package module

import (
	"fmt"
	"strings"
)

// resolveOrder returns module indexes in boot order: dependencies first,
// otherwise declaration order. Kahn's algorithm, always picking the lowest
// ready index, keeps the result deterministic.
func resolveOrder(mods []Module) ([]int, error) {
	index := make(map[string]int, len(mods))
	for i, m := range mods {
		index[m.Manifest().ID] = i
	}

	indegree := make([]int, len(mods))
	dependents := make([][]int, len(mods))
	for i, m := range mods {
		for _, dep := range m.Manifest().DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, m.Manifest().ID, dep)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	order := make([]int, 0, len(mods))
	done := make([]bool, len(mods))
	for len(order) < len(mods) {
		next := -1
		for i := range mods {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, m := range mods {
				if !done[i] {
					stuck = append(stuck, m.Manifest().ID)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return order, nil
}

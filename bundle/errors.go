/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package bundle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is matched by every CycleError via errors.Is.
var ErrCycle = errors.New("circular dependency")

// CycleError reports a true cycle among bundle dependencies or parcel
// extensions. It is fatal for the build.
type CycleError struct {
	// Kind is the relation that cycles: KindBundle for dependencies,
	// KindParcel for extends chains.
	Kind Kind
	// Name is the node that was found on its own resolution path.
	Name string
	// Path lists the nodes along the cycle, starting and ending with Name.
	Path []string
}

func (e *CycleError) Error() string {
	relation := "dependency"
	if e.Kind == KindParcel {
		relation = "extends"
	}
	return fmt.Sprintf("circular %s detected at %q: %s", relation, e.Name, strings.Join(e.Path, " -> "))
}

// Is makes errors.Is(err, ErrCycle) succeed.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// UnresolvedReference records a dependency or extends target that names no
// known node. It is reported as a warning and treated as empty.
type UnresolvedReference struct {
	From string // key of the referencing node
	Name string // the unresolved name or pattern
}

func (u UnresolvedReference) String() string {
	return fmt.Sprintf("%s references unknown %q", u.From, u.Name)
}

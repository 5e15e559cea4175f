// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package descriptor

// ExecParams holds the knobs for Ordering.Execute.
// A nil *ExecParams is equivalent to the zero value.
type ExecParams struct {
	// Logf, if non-nil, receives a line
	// for every stage as it is executed.
	// Logf must be safe to call from multiple
	// goroutines if the same ExecParams is
	// shared between concurrent calls.
	Logf func(f string, args ...interface{})
	// DisableTopK, if set, executes a sort
	// followed by a limit as two separate
	// stages instead of a bounded heap.
	DisableTopK bool
}

func (ep *ExecParams) logf(f string, args ...interface{}) {
	if ep != nil && ep.Logf != nil {
		ep.Logf(f, args...)
	}
}

func (ep *ExecParams) topk() bool {
	return ep == nil || !ep.DisableTopK
}

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

/*
Package descriptor implements the ORDER BY and
DISTINCT criteria of a query over a table.Table.


Overview

A Descriptor names one or more column chains.
A chain starts at a column of the base table and
may follow any number of single-target link
columns before ending in a value column, e.g.

	employer.address.city

Sort descriptors carry a direction per chain;
distinct descriptors compare chains for equality
only; limit descriptors truncate the view.
Descriptors are composed into an Ordering, which
applies its stages in sequence to a View of
stable row identities (table.ObjKey).


Null ordering

Null values (including chains that cannot be
followed because a link is unset or dangling)
are emitted before every non-null value for
both ASC and DESC: the direction only flips the
relative order of non-null values. Distinct
considers two nulls equal.


Handover

A Descriptor refers to live table instances and
must not be used with a different snapshot. To
move an Ordering to another snapshot (typically
on another goroutine), call GeneratePatch, pass
the Patch along, and rebuild the Ordering with
CreateFromAndConsumePatch against the target
table. A Patch only holds column keys and flags
and can also be serialized with MarshalBinary or
Text.
*/
package descriptor

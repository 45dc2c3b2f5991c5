// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package datamodel provides containers that attach descriptive metadata to
// scientific data, in the manner of CDF and NetCDF variables.
//
// Two container types are provided:
//   - Array[T]: a numeric array carrying an attribute mapping that survives
//     every derivation (slicing, element-wise maps, casts, reshapes,
//     arithmetic) and persistence round-trips.
//   - SpaceData: an insertion-ordered mapping carrying the same kind of
//     attribute mapping.
//
// An Array permits exactly one settable attribute, "attrs". Arrays restored
// from an envelope written with additional positional attribute slots also
// accept "extra_attr_1", "extra_attr_2", ... in slot order.
//
// Example:
//
//	pos, _ := datamodel.NewArray[int64]([]int64{1, 2, 3}, datamodel.NewAttrs("coord_system", "GSM"))
//	first, _ := pos.Slice(tensor.To(2)) // attrs travel with the view
//	v, _ := first.Attrs().Get("coord_system")
//	fmt.Println(first, v) // [1 2] GSM
//
//	data, _ := datamodel.NewSpaceData(
//	    datamodel.WithEntry("B_GSM", pos),
//	    datamodel.WithAttrs(map[string]any{"mission": "RBSP"}),
//	)
package datamodel

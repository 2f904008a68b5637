// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

// Pair is the result of zipping two datasets element-wise (spec §4.2).
type Pair[A, B any] struct {
	First  A
	Second B
}

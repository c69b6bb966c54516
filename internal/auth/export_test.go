// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

// DummyPasswordHash exposes the timing-equalization digest to tests.
const DummyPasswordHash = dummyPasswordHash

// Recode exposes recode to tests.
var Recode = recode

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

// ClientIPFromRemoteAddr exposes clientIPFromRemoteAddr for direct testing.
var ClientIPFromRemoteAddr = clientIPFromRemoteAddr

// ReasonForStatus exposes reasonForStatus for direct testing.
var ReasonForStatus = reasonForStatus

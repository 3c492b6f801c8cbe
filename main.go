// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the DbRevel CLI.
package main

import (
	"dbrevel/cli/cmd"
)

func main() {
	cmd.Execute()
}

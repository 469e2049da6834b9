// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Household login and logout commands.
package cli

import (
	"context"
	"fmt"
	"os"
)

// HandleLogin signs in to a household and claims this device's anonymous
// conversations into it.
func HandleLogin(args Args) int {
	if args.Household == "" {
		fmt.Fprintln(os.Stderr, "usage: murabbi login <household-id>")
		return 1
	}

	rt, err := NewRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	secret, err := promptSecret("Household secret")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Timeout())
	defer cancel()

	if err := rt.Identity.Login(ctx, args.Household, secret); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		return 1
	}

	// Claim failure is not fatal; the threads stay reachable through the
	// device id and the TUI retries the claim on its next login.
	moved, err := rt.Engine.Claim(ctx, rt.BrowserID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not claim device conversations: %v\n", err)
		moved = 0
	}

	fmt.Printf("Signed in to household %s", args.Household)
	if moved > 0 {
		fmt.Printf(" (%d conversations moved in)", moved)
	}
	fmt.Println()
	return 0
}

// HandleLogout deletes the stored access token. The device id is kept so
// anonymous conversations stay reachable.
func HandleLogout(args Args) int {
	rt, err := NewRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := rt.Identity.Logout(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("Signed out.")
	return 0
}

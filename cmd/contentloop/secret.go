// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/config"
	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/secrets"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// keyValidator checks a key against the provider before it is stored.
// Overridden in tests.
var keyValidator = func(cmd *cobra.Command, providerName, key string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	return provider.ValidateKey(cmd.Context(), client, providerName, key)
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage provider API keys in the OS keyring",
		Long: "Store provider API keys in the operating system keyring. Reference a stored key from config as\n" +
			"keyring://" + secrets.DefaultService + "/<provider>-api-key.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretGetCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <provider> [api-key]",
		Short: "Store a provider API key (read from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSecretSet,
	}
	cmd.Flags().Bool("validate", false, "check the key against the provider before storing it")
	return cmd
}

func newSecretGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <provider>",
		Short: "Show a stored provider API key (masked)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretGet,
	}
	cmd.Flags().Bool("reveal", false, "print the full key")
	return cmd
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider>",
		Short: "Delete a stored provider API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func checkProviderName(name string) error {
	for _, known := range config.ProviderNames() {
		if name == known {
			return nil
		}
	}
	return looperr.Errorf(looperr.CodeCLIInputInvalid, "unknown provider %q (one of %s)",
		name, strings.Join(config.ProviderNames(), ", "))
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkProviderName(name); err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return looperr.Errorf(looperr.CodeCLIInputInvalid, "reading API key from stdin: %v", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return looperr.New(looperr.CodeCLIInputInvalid, "API key must not be empty")
	}

	if validate, _ := cmd.Flags().GetBool("validate"); validate {
		if err := keyValidator(cmd, name, key); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Key accepted by %s\n", name)
	}

	ref := secrets.Ref{Service: secrets.DefaultService, Key: secrets.ProviderKeyName(name)}
	if err := secretStoreFactory().Set(ref.Service, ref.Key, key); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Stored %s API key\n", name)
	_, _ = fmt.Fprintf(out, "Reference it in config as: %s\n", ref.URI())
	return nil
}

func runSecretGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkProviderName(name); err != nil {
		return err
	}

	key, err := secretStoreFactory().Get(secrets.DefaultService, secrets.ProviderKeyName(name))
	if err != nil {
		return err
	}

	if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
		key = maskSecret(key)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkProviderName(name); err != nil {
		return err
	}

	if err := secretStoreFactory().Delete(secrets.DefaultService, secrets.ProviderKeyName(name)); err != nil {
		if looperr.HasCode(err, looperr.CodeSecretNotFound) {
			return looperr.Errorf(looperr.CodeSecretNotFound, "no API key stored for %s", name)
		}
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key\n", name)
	return nil
}

// maskSecret keeps the first and last four characters of long keys.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

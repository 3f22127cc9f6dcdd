package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	defaultTokenBytes = 32
	minTokenLength    = 16
)

var errMismatch = errors.New("token does not match hash")

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "apitoken",
		Short: "Manage the clipshare API token",
		Long: `Generate and hash the static API token that guards clipshare's
mutating endpoints.

Set STATIC_API_TOKEN to the plain token, or STATIC_API_TOKEN_HASH to the
bcrypt hash printed by "apitoken hash".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(newGenerateCmd(), newHashCmd(), newVerifyCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a new random API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < minTokenLength/2 {
				return fmt.Errorf("--bytes must be at least %d", minTokenLength/2)
			}
			token, err := generateToken(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", defaultTokenBytes, "number of random bytes (printed as hex)")
	return cmd
}

func newHashCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the bcrypt hash of a token read from the terminal or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("--cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}
			token, err := readToken(cmd.InOrStdin(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword(token, cost)
			if err != nil {
				return fmt.Errorf("failed to hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <hash>",
		Short: "Check a token against a bcrypt hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd.InOrStdin(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if err := bcrypt.CompareHashAndPassword([]byte(args[0]), token); err != nil {
				if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
					return errMismatch
				}
				return fmt.Errorf("invalid hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token matches")
			return nil
		},
	}
}

func generateToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// readToken prompts without echo when in is a terminal, otherwise it reads
// the first line of in.
func readToken(in io.Reader, prompt io.Writer, confirm bool) ([]byte, error) {
	var token []byte
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var err error
		token, err = promptToken(int(f.Fd()), prompt, "Token: ")
		if err != nil {
			return nil, err
		}
		if confirm {
			again, err := promptToken(int(f.Fd()), prompt, "Confirm Token: ")
			if err != nil {
				return nil, err
			}
			if !bytes.Equal(token, again) {
				return nil, errors.New("tokens do not match")
			}
		}
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		token = []byte(strings.TrimRight(line, "\r\n"))
	}

	if len(token) < minTokenLength {
		return nil, fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	// bcrypt ignores everything past 72 bytes
	if len(token) > 72 {
		return nil, errors.New("token must be at most 72 bytes")
	}
	return token, nil
}

func promptToken(fd int, prompt io.Writer, label string) ([]byte, error) {
	fmt.Fprint(prompt, label)
	token, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("error reading token: %w", err)
	}
	return token, nil
}

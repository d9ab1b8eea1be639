// Re-encrypts wallet key blobs under a new vault passphrase.
// Blobs are read one per line from -in (default stdin) and written in the
// same order to stdout. Nothing is written unless every blob decrypts.
// Usage: go run ./cmd/reencrypt_cipher -in keys.txt > keys.new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlexZinkM/escrow-custody/internal/config"
	"github.com/AlexZinkM/escrow-custody/internal/crypto"
)

func main() {
	in := flag.String("in", "", "file with one encrypted blob per line (default stdin)")
	flag.Parse()

	src := io.Reader(os.Stdin)
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		src = f
	}

	from, err := vaultFrom("OLD_ENCRYPTION_KEY", "Old vault passphrase: ")
	if err != nil {
		fail(err)
	}
	defer from.Close()
	to, err := vaultFrom("NEW_ENCRYPTION_KEY", "New vault passphrase: ")
	if err != nil {
		fail(err)
	}
	defer to.Close()

	n, err := reencrypt(src, os.Stdout, from, to)
	if err != nil {
		fail(err)
	}
	fmt.Fprintf(os.Stderr, "re-encrypted %d blobs\n", n)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// vaultFrom reads the passphrase from env, or prompts when it is unset.
func vaultFrom(env, prompt string) (*crypto.Vault, error) {
	var pass []byte
	if v := os.Getenv(env); v != "" {
		pass = []byte(v)
	} else {
		raw, err := config.ReadPassword(prompt)
		if err != nil {
			return nil, err
		}
		pass = raw
	}
	defer clear(pass)
	return crypto.NewVault(pass)
}

// reencrypt rotates every non-empty line of r and writes the results to w
// only after all of them succeed.
func reencrypt(r io.Reader, w io.Writer, from, to *crypto.Vault) (int, error) {
	var out []string
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		blob := strings.TrimSpace(sc.Text())
		if blob == "" {
			continue
		}
		rotated, err := crypto.Rotate(blob, from, to)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rotated)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read blobs: %w", err)
	}

	bw := bufio.NewWriter(w)
	for _, blob := range out {
		bw.WriteString(blob)
		bw.WriteByte('\n')
	}
	return len(out), bw.Flush()
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/service"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// adminTokenTTL only matters for revocation; taskctl never issues tokens.
const adminTokenTTL = time.Hour

// openServices opens an existing database, migrates it and wires the
// domain services over it.
func openServices(path string) (*service.Services, func(), error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("database file not found: %s", path)
	}

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	PrintVerbose("opened database %s", path)

	svc := service.New(store, service.Options{
		Tokens: auth.NewTokenService(adminTokenTTL),
	})
	return svc, func() { store.Close() }, nil
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// piped input
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptNewPassword asks for a password twice and checks it against the
// password policy of svc.
func promptNewPassword(svc *service.Services, prompt string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if err := svc.Users.CheckPassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %s", service.Message(err))
	}

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// confirm asks a yes/no question on stdin; anything but y/yes is no.
func confirm(r io.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := readLine(r)
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

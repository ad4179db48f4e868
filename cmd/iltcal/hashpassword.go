package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"iltcal/internal/config"
	"iltcal/internal/web"
)

// hashPassword handles the hash-password subcommand. It prints the Argon2id
// hash, and stores it with the username under basic_auth when -write is set.
func hashPassword(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	configPath := fs.String("config", "/etc/iltcal/config.yaml", "Config file to update with -write")
	write := fs.Bool("write", false, "Store the credentials in the config file")
	insecureUnmask := fs.Bool("insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: iltcal hash-password [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Hashes a basic auth password (Argon2id).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	fmt.Print("Enter username: ")
	var username string
	if _, err := fmt.Scanln(&username); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading username: %v\n", err)
		os.Exit(1)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Fprintf(os.Stderr, "Username cannot be empty\n")
		os.Exit(1)
	}

	var password, passwordConfirm string
	if *insecureUnmask {
		fmt.Fprintf(os.Stderr, "WARNING: Password will be visible on screen!\n")
		password = readLine("Enter password:   ")
		passwordConfirm = readLine("Confirm password: ")
	} else {
		password = readPasswordWithMask("Enter password:   ")
		passwordConfirm = readPasswordWithMask("Confirm password: ")
	}

	if password == "" {
		fmt.Fprintf(os.Stderr, "Password cannot be empty\n")
		os.Exit(1)
	}
	if password != passwordConfirm {
		fmt.Fprintf(os.Stderr, "Passwords do not match\n")
		os.Exit(1)
	}

	hash, err := web.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*write {
		fmt.Printf("basic_auth:\n  username: %s\n  password_hash: %q\n", username, hash)
		return
	}

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	conf.BasicAuth = &config.BasicAuthConfig{Username: username, PasswordHash: hash}
	if err := conf.Save(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Credentials for %q written to %s\n", username, *configPath)
}

func readLine(prompt string) string {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	return strings.TrimRight(line, "\r\n")
}

// readPasswordWithMask reads a password in raw mode, echoing asterisks.
func readPasswordWithMask(prompt string) string {
	fmt.Print(prompt)
	fd := int(syscall.Stdin)

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Not a terminal; fall back to hidden input.
		password, _ := term.ReadPassword(fd)
		fmt.Println()
		return string(password)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	var password []rune
	reader := bufio.NewReader(os.Stdin)
	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}
		switch char {
		case '\n', '\r':
			fmt.Print("\r\n")
			return string(password)
		case 127, 8:
			if len(password) > 0 {
				password = password[:len(password)-1]
				fmt.Print("\b \b")
			}
		case 3: // Ctrl+C
			_ = term.Restore(fd, oldState)
			fmt.Println()
			os.Exit(1)
		default:
			if char >= 32 && char <= 126 {
				password = append(password, char)
				fmt.Print("*")
			}
		}
	}
	fmt.Print("\r\n")
	return string(password)
}

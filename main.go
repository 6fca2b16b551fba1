package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sphereryder/passvault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "register":
		runRegister(ctx, os.Args[2:])
	case "add":
		runAdd(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "update":
		runUpdate(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "log":
		runLog(ctx, os.Args[2:])
	case "generate":
		runGenerate(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runRegister(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Register(ctx, *user)
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	login := fs.String("login", "", "Login name for the service")
	notes := fs.String("notes", "", "Notes to store with the entry")
	gen := fs.Bool("gen", false, "Generate the password instead of prompting")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault add [flags] <domain>")
		os.Exit(1)
	}

	cmd.Add(ctx, *user, fs.Arg(0), *login, *notes, *gen)
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault get [flags] <domain>")
		os.Exit(1)
	}

	cmd.Get(ctx, *user, fs.Arg(0))
}

func runUpdate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	gen := fs.Bool("gen", false, "Generate the new password instead of prompting")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault update [flags] <domain>")
		os.Exit(1)
	}

	cmd.Update(ctx, *user, fs.Arg(0), *gen)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault rm [flags] <domain>")
		os.Exit(1)
	}

	cmd.Remove(ctx, *user, fs.Arg(0))
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.List(ctx, *user)
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Passwd(ctx, *user)
}

func runLog(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	limit := fs.Int("n", 0, "Number of entries to show (default 50)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.ActivityLog(ctx, *limit)
}

func runGenerate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	length := fs.Int("l", 16, "Password length (minimum 12)")
	noUpper := fs.Bool("no-upper", false, "Exclude uppercase letters")
	noLower := fs.Bool("no-lower", false, "Exclude lowercase letters")
	noDigits := fs.Bool("no-digits", false, "Exclude digits")
	noSpecial := fs.Bool("no-special", false, "Exclude special characters")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Generate(*length, *noUpper, *noLower, *noDigits, *noSpecial)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault keyring <set|rm|status> [-u user]")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("keyring", flag.ExitOnError)
	user := fs.String("u", "", "Vault username")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "set":
		cmd.KeyringSet(ctx, *user)
	case "rm":
		cmd.KeyringRemove(*user)
	case "status":
		cmd.KeyringStatus(*user)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Status(ctx)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Compact(ctx)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("passvault - Multi-user encrypted password vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register    Create a new vault user")
	fmt.Println("  add         Store a password for a domain")
	fmt.Println("  get         Retrieve a stored password")
	fmt.Println("  update      Replace a stored password")
	fmt.Println("  rm          Remove a domain from the vault")
	fmt.Println("  ls          List domains in the vault")
	fmt.Println("  passwd      Change the master password (re-encrypts the vault)")
	fmt.Println("  log         Show recent activity")
	fmt.Println("  generate    Generate a random password")
	fmt.Println("  keyring     Manage the master password in the OS keyring")
	fmt.Println("  status      Show vault database status")
	fmt.Println("  compact     Compact the vault database")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passvault register -u alice        # Create user alice")
	fmt.Println("  passvault add --gen github.com     # Store a generated password")
	fmt.Println("  passvault get github.com           # Retrieve it")
	fmt.Println("  passvault passwd                   # Rotate the master password")
	fmt.Println()
	fmt.Println("Use 'passvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "register":
		fmt.Println("passvault register [-u user]")
		fmt.Println()
		fmt.Println("Creates a new vault user. Prompts for a master password that")
		fmt.Println("protects all of the user's stored credentials. The password is")
		fmt.Println("not stored anywhere - you must remember it.")
	case "add":
		fmt.Println("passvault add [-u user] [--login name] [--notes text] [--gen] <domain>")
		fmt.Println()
		fmt.Println("Encrypts and stores a password for a domain. Prompts for the")
		fmt.Println("password unless --gen is given, in which case a strong random")
		fmt.Println("password is generated and printed once.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --login   Login name for the service (stored with the entry)")
		fmt.Println("  --notes   Notes to store, encrypted, with the entry")
		fmt.Println("  --gen     Generate the password")
	case "get":
		fmt.Println("passvault get [-u user] <domain>")
		fmt.Println()
		fmt.Println("Decrypts and prints the stored record for a domain.")
	case "update":
		fmt.Println("passvault update [-u user] [--gen] <domain>")
		fmt.Println()
		fmt.Println("Replaces the stored password for a domain. The login name,")
		fmt.Println("notes and creation time are kept.")
	case "rm":
		fmt.Println("passvault rm [-u user] <domain>")
		fmt.Println()
		fmt.Println("Removes a domain and its password from the vault.")
	case "ls":
		fmt.Println("passvault ls [-u user]")
		fmt.Println()
		fmt.Println("Lists the domains stored in the user's vault.")
	case "passwd":
		fmt.Println("passvault passwd [-u user]")
		fmt.Println()
		fmt.Println("Changes the master password. Every record in the vault is")
		fmt.Println("re-encrypted under the new password; the change is atomic -")
		fmt.Println("if anything fails, the old password remains valid.")
	case "log":
		fmt.Println("passvault log [-n count]")
		fmt.Println()
		fmt.Println("Shows recent vault activity, most recent first (default 50).")
	case "generate":
		fmt.Println("passvault generate [-l length] [--no-upper] [--no-lower] [--no-digits] [--no-special]")
		fmt.Println()
		fmt.Println("Generates a cryptographically secure random password without")
		fmt.Println("touching the vault. Minimum length is 12, default 16.")
	case "keyring":
		fmt.Println("passvault keyring <set|rm|status> [-u user]")
		fmt.Println()
		fmt.Println("Stores, removes or checks the master password in the OS keyring.")
		fmt.Println("A stored password skips the prompt on later commands.")
	case "status":
		fmt.Println("passvault status")
		fmt.Println()
		fmt.Println("Shows the vault database path, whether it is initialized, when")
		fmt.Println("it was last modified, and how many users and entries it holds.")
		fmt.Println("No secrets are read and no authentication is required.")
	case "compact":
		fmt.Println("passvault compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
	case "completion":
		fmt.Println("passvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs a shell completion script for the specified shell.")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}

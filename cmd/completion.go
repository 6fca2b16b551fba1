package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_passvault() {
    local cur prev words cword
    _init_completion || return

    local commands="register add get update rm ls passwd log generate keyring status compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "-u --login --notes --gen" -- "$cur"))
            ;;
        update)
            COMPREPLY=($(compgen -W "-u --gen" -- "$cur"))
            ;;
        get|rm)
            COMPREPLY=($(compgen -W "-u" -- "$cur"))
            ;;
        ls|register|passwd)
            COMPREPLY=($(compgen -W "-u" -- "$cur"))
            ;;
        log)
            COMPREPLY=($(compgen -W "-n" -- "$cur"))
            ;;
        generate)
            COMPREPLY=($(compgen -W "-l --no-upper --no-lower --no-digits --no-special" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "set rm status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passvault passvault
`

const zshCompletion = `#compdef passvault

_passvault() {
    local -a commands
    commands=(
        'register:Create a new vault user'
        'add:Store a password for a domain'
        'get:Retrieve a stored password'
        'update:Replace a stored password'
        'rm:Remove a domain from the vault'
        'ls:List domains in the vault'
        'passwd:Change the master password'
        'log:Show recent activity'
        'generate:Generate a random password'
        'keyring:Manage master password in OS keyring'
        'status:Show vault database status'
        'compact:Compact the vault database'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments \
                        '-u[Vault username]' \
                        '--login[Login name for the service]' \
                        '--notes[Notes to store with the entry]' \
                        '--gen[Generate the password]'
                    ;;
                update)
                    _arguments \
                        '-u[Vault username]' \
                        '--gen[Generate the password]'
                    ;;
                generate)
                    _arguments \
                        '-l[Password length]' \
                        '--no-upper[Exclude uppercase letters]' \
                        '--no-lower[Exclude lowercase letters]' \
                        '--no-digits[Exclude digits]' \
                        '--no-special[Exclude special characters]'
                    ;;
                keyring)
                    _values 'subcommand' set rm status
                    ;;
                help)
                    _describe -t commands 'passvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passvault "$@"
`

const fishCompletion = `# passvault fish completions

set -l commands register add get update rm ls passwd log generate keyring status compact help completion

complete -c passvault -f

complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a register -d 'Create a new vault user'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a add -d 'Store a password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Retrieve a password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a update -d 'Replace a password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove a domain'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List domains'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change master password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a log -d 'Show recent activity'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a generate -d 'Generate a password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage OS keyring'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault database'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

complete -c passvault -n "__fish_seen_subcommand_from add" -l login -d 'Login name for the service'
complete -c passvault -n "__fish_seen_subcommand_from add" -l notes -d 'Notes to store'
complete -c passvault -n "__fish_seen_subcommand_from add" -l gen -d 'Generate the password'
complete -c passvault -n "__fish_seen_subcommand_from update" -l gen -d 'Generate the password'

complete -c passvault -n "__fish_seen_subcommand_from keyring" -a "set rm status"
complete -c passvault -n "__fish_seen_subcommand_from help" -a "$commands"
complete -c passvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`

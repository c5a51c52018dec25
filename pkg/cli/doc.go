// Package cli implements the `dsv` command-line interface for the
// university services.
//
// # Overview
//
// This package implements the `dsv` CLI tool for querying room
// schedules, the staff directory, supervision queues, the office map
// and the mailbox from the terminal, with SSO sessions cached between
// invocations.
//
// # Commands
//
// login: Verify the account and store the password in the OS keyring
//
//	dsv login --username abcd1234
//
// logout: Remove the stored password and clear cached sessions
//
//	dsv logout --username abcd1234
//
// schedule: Show the room schedule for a category and day
//
//	dsv schedule --category 68 --date 2026-03-02
//
// staff: Search the staff directory or show one profile
//
//	dsv staff --name Andersson
//	dsv staff --id 1234
//	dsv staff --all
//
// queue: Show supervision sessions and manage their queues
//
//	dsv queue
//	dsv queue --session 17
//	dsv queue --session 17 --add abcd1234
//
// placements: Query the office map
//
//	dsv placements --search Andersson
//	dsv placements --vacant
//
// mail: List or read mailbox messages
//
//	dsv mail --folder inbox --limit 20
//	dsv mail --folder inbox --seq 41
//
// # Configuration
//
// Account and backends come from the environment:
//
//	export DSV_USERNAME="abcd1234"
//	export DSV_PASSWORD="..."       # optional, keyring is used otherwise
//	export DSV_CACHE_BACKEND="file" # null, memory, file, redis, sqlite
//
// # Related Packages
//
//   - pkg/dsv: Constructs the shared login engine and service clients
//   - pkg/config: Environment configuration and keyring access
package cli

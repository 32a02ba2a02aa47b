// consolectl is a terminal client for the flasher console. It signs in
// against a running console server, keeps the session in a token file,
// and exposes a few read commands on top of it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/flasherpro/console/internal/gate"
	"github.com/flasherpro/console/internal/logging"
	"github.com/flasherpro/console/internal/remote"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: consolectl [flags] <command> [args]

Commands:
  login <email>    sign in and persist the session
  logout           sign out and drop the session
  status           show the current session state
  stats            show dashboard stats
  validate <key>   check a license key
  watch            follow live console updates

Flags:
`)
	flag.PrintDefaults()
}

// printNotifier surfaces gate notifications on the terminal.
type printNotifier struct{}

func (printNotifier) Success(msg string) { fmt.Println(msg) }
func (printNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, msg) }

func main() {
	defaultServer := os.Getenv("CONSOLECTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	serverURL := flag.String("server", defaultServer, "console server URL")
	tokenPath := flag.String("token-file", defaultTokenPath(), "session token file")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	logger := logging.Setup(*logLevel)
	client := remote.NewClient(*serverURL, *tokenPath, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var err error
	switch flag.Arg(0) {
	case "login":
		err = runLogin(ctx, client, logger, flag.Arg(1))
	case "logout":
		err = runLogout(ctx, client, logger)
	case "status":
		err = runStatus(ctx, client, logger)
	case "stats":
		err = runStats(ctx, client)
	case "validate":
		err = runValidate(ctx, client, flag.Arg(1))
	case "watch":
		err = runWatch(ctx, client, logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".consolectl-session"
	}
	return filepath.Join(home, ".config", "consolectl", "session")
}

// startGate runs a gate over the remote client and blocks until it
// leaves the loading state.
func startGate(ctx context.Context, client *remote.Client, logger *slog.Logger) (*gate.Gate, gate.Snapshot, error) {
	g := gate.New(client, client, printNotifier{}, logger)

	settled := make(chan gate.Snapshot, 1)
	unsubscribe := g.Subscribe(func(snap gate.Snapshot) {
		if snap.State != gate.StateLoading {
			select {
			case settled <- snap:
			default:
			}
		}
	})
	defer unsubscribe()

	g.Start(ctx)

	select {
	case snap := <-settled:
		return g, snap, nil
	case <-time.After(gate.DefaultBootstrapTimeout + time.Second):
		return nil, gate.Snapshot{}, fmt.Errorf("timed out waiting for session state")
	case <-ctx.Done():
		return nil, gate.Snapshot{}, ctx.Err()
	}
}

func waitFor(g *gate.Gate, want gate.State, timeout time.Duration) (gate.Snapshot, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap := g.Snapshot()
		if snap.State == want {
			return snap, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return g.Snapshot(), fmt.Errorf("timed out waiting for state %q", want)
}

func runLogin(ctx context.Context, client *remote.Client, logger *slog.Logger, email string) error {
	if email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		email = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	g, snap, err := startGate(ctx, client, logger)
	if err != nil {
		return err
	}
	if snap.State == gate.StateAuthenticated {
		fmt.Printf("Already signed in as %s\n", snap.Email)
		return nil
	}

	if err := g.SignIn(ctx, email, string(password)); err != nil {
		return err
	}
	snap, err = waitFor(g, gate.StateAuthenticated, 10*time.Second)
	if err != nil {
		return fmt.Errorf("sign-in did not complete")
	}
	fmt.Printf("Signed in as %s (admin=%v)\n", snap.Email, snap.Admin)
	return nil
}

func runLogout(ctx context.Context, client *remote.Client, logger *slog.Logger) error {
	g, snap, err := startGate(ctx, client, logger)
	if err != nil {
		return err
	}
	if snap.State != gate.StateAuthenticated {
		fmt.Println("Not signed in")
		return nil
	}
	return g.SignOut(ctx)
}

func runStatus(ctx context.Context, client *remote.Client, logger *slog.Logger) error {
	_, snap, err := startGate(ctx, client, logger)
	if err != nil {
		return err
	}
	switch snap.State {
	case gate.StateAuthenticated:
		fmt.Printf("Signed in as %s (admin=%v)\n", snap.Email, snap.Admin)
	default:
		fmt.Println("Not signed in")
	}
	return nil
}

func runStats(ctx context.Context, client *remote.Client) error {
	stats, recent, err := client.Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("License keys: %d total, %d active, %d expired\n",
		stats.TotalLicenseKeys, stats.ActiveLicenseKeys, stats.ExpiredLicenseKeys)
	fmt.Printf("Users: %d\n", stats.TotalUsers)
	if len(recent) > 0 {
		fmt.Println("Recent keys:")
		for _, k := range recent {
			fmt.Printf("  %-26s %-9s %-4s %s\n", k.Key, k.Status, k.Type, k.UserEmail)
		}
	}
	return nil
}

func runValidate(ctx context.Context, client *remote.Client, key string) error {
	if key == "" {
		return fmt.Errorf("usage: consolectl validate <key>")
	}
	valid, reason, err := client.ValidateLicense(ctx, key)
	if err != nil {
		return err
	}
	if valid {
		fmt.Println("valid")
		return nil
	}
	fmt.Printf("invalid: %s\n", reason)
	return nil
}

func runWatch(ctx context.Context, client *remote.Client, logger *slog.Logger) error {
	sess, err := client.GetPersistedSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("not signed in")
	}

	fmt.Println("Watching for console changes (Ctrl+C to stop)")
	go func() {
		for ev := range client.Events() {
			if ev.Kind == gate.EventSignedOut {
				fmt.Println("Session revoked remotely")
				os.Exit(0)
			}
		}
	}()

	client.Watch(ctx, func(entity, action string, id int64) {
		fmt.Printf("%s %s %s id=%d\n", time.Now().Format("15:04:05"), entity, action, id)
	})
	return nil
}

// Package main implements kbctl, a command line client for the
// knowledge API built on the client SDK. Credentials persist under the
// user config directory, so a login survives across invocations until
// it is revoked or the refresh token expires.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/client"
)

const defaultAPIURL = "http://localhost:8080"

const usageText = `kbctl talks to a knowledge API server.

Usage:
  kbctl [-api URL] <command> [arguments]

Commands:
  register   create an account and log in
  login      exchange credentials for a stored token pair
  logout     revoke the session and clear stored credentials
  whoami     print the authenticated profile
  articles   list articles
  papers     list papers

The API origin comes from -api or the KNOWLEDGE_API_URL environment
variable. Run "kbctl <command> -h" for command flags.
`

func main() {
	apiURL := flag.String("api", envOr("KNOWLEDGE_API_URL", defaultAPIURL), "API origin")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := newClient(*apiURL)
	if err != nil {
		fatalf("%v", err)
	}

	if err := run(ctx, api, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatalf("%v", err)
	}
}

func run(ctx context.Context, api *client.Client, command string, args []string) error {
	switch command {
	case "register":
		return runRegister(ctx, api, args)
	case "login":
		return runLogin(ctx, api, args)
	case "logout":
		return runLogout(ctx, api)
	case "whoami":
		return runWhoami(ctx, api)
	case "articles":
		return runArticles(ctx, api, args)
	case "papers":
		return runPapers(ctx, api, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func newClient(apiURL string) (*client.Client, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}

	return client.New(client.Config{
		BaseURL: apiURL,
		Tokens:  client.NewFileTokenStore(filepath.Join(dir, "kbctl", "credentials.json")),
		OnSessionExpired: func() {
			fmt.Fprintln(os.Stderr, "session expired, run `kbctl login` again")
		},
		Logger: zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel),
	})
}

func runRegister(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	var (
		email    = fs.String("email", "", "account email (required)")
		password = fs.String("password", "", "password (prompted when omitted)")
		name     = fs.String("name", "", "display name")
	)
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("register: -email required")
	}
	pw, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	sess := client.NewSessionStore(api)
	if err := sess.Register(ctx, *email, pw, *name); err != nil {
		return err
	}

	user := sess.Current().User
	fmt.Printf("registered and logged in as %s\n", user.Email)
	return nil
}

func runLogin(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	var (
		email    = fs.String("email", "", "account email (required)")
		password = fs.String("password", "", "password (prompted when omitted)")
	)
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("login: -email required")
	}
	pw, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	sess := client.NewSessionStore(api)
	if err := sess.Login(ctx, *email, pw); err != nil {
		return err
	}

	user := sess.Current().User
	fmt.Printf("logged in as %s\n", user.Email)
	return nil
}

func runLogout(ctx context.Context, api *client.Client) error {
	sess := client.NewSessionStore(api)
	if err := sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runWhoami(ctx context.Context, api *client.Client) error {
	user, err := api.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s (id %d)\n", user.Email, user.ID)
	fmt.Printf("  username: %s\n", user.Username)
	if user.FullName != nil && *user.FullName != "" {
		fmt.Printf("  name:     %s\n", *user.FullName)
	}
	fmt.Printf("  verified: %v\n", user.IsVerified)
	if user.IsSuperuser {
		fmt.Println("  role:     superuser")
	}
	return nil
}

func runArticles(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("articles", flag.ExitOnError)
	var (
		limit     = fs.Int("limit", 20, "maximum rows")
		skip      = fs.Int("skip", 0, "rows to skip")
		published = fs.Bool("published", false, "published articles only")
		search    = fs.String("search", "", "title/content search term")
		category  = fs.Int64("category", 0, "filter by category id")
		asJSON    = fs.Bool("json", false, "print raw JSON")
	)
	fs.Parse(args)

	articles, err := api.ListArticles(ctx, client.ArticleListOptions{
		Skip:          *skip,
		Limit:         *limit,
		PublishedOnly: *published,
		CategoryID:    *category,
		Search:        *search,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(articles)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tVIEWS\tLIKES\tTITLE")
	for _, a := range articles {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", a.ID, a.Status, a.ViewCount, a.LikeCount, a.Title)
	}
	return w.Flush()
}

func runPapers(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("papers", flag.ExitOnError)
	var (
		limit     = fs.Int("limit", 20, "maximum rows")
		skip      = fs.Int("skip", 0, "rows to skip")
		status    = fs.String("status", "", "filter by reading status")
		favorites = fs.Bool("favorites", false, "favorites only")
		search    = fs.String("search", "", "title/abstract/authors search term")
		year      = fs.Int("year", 0, "filter by publication year")
		asJSON    = fs.Bool("json", false, "print raw JSON")
	)
	fs.Parse(args)

	papers, err := api.ListPapers(ctx, client.PaperListOptions{
		Skip:          *skip,
		Limit:         *limit,
		ReadingStatus: *status,
		FavoritesOnly: *favorites,
		Search:        *search,
		Year:          *year,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(papers)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tYEAR\tFAV\tTITLE")
	for _, p := range papers {
		year := ""
		if p.PublicationYear != nil {
			year = fmt.Sprintf("%d", *p.PublicationYear)
		}
		fav := ""
		if p.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.ReadingStatus, year, fav, p.Title)
	}
	return w.Flush()
}

func passwordOrPrompt(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("empty password")
	}
	return pw, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "kbctl: "+format+"\n", args...)
	os.Exit(1)
}

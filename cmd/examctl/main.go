// Command examctl runs the session orchestrator from a terminal: it logs in
// to upstream directly, lists sessions with their display status, and cancels
// or deletes them under the same rules the console enforces.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/logger"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/service"
)

// readPassword is swapped in tests.
var readPassword = func(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	auth     service.AuthUpstream
	sessions *service.ExamSessionService
	stdin    *bufio.Reader
	stdout   io.Writer
	stderr   io.Writer
	log      zerolog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("examctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	upstreamURL := fs.String("upstream", cfg.UpstreamBaseURL, "upstream API base URL")
	redisURL := fs.String("redis", cfg.RedisURL, "Redis URL for the audit queue; empty disables auditing")
	email := fs.String("email", os.Getenv("EXAMCTL_EMAIL"), "account email")
	policy := fs.String("policy", string(cfg.SessionOngoingPolicy), "ongoing-session policy: block or server")
	verbose := fs.Bool("v", false, "log upstream calls to stderr")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr, fs)
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.SetupWriter(stderr, level, "pretty")

	upstream := repository.NewUpstream(strings.TrimRight(*upstreamURL, "/"), cfg.UpstreamTimeout, log)
	var auditor service.Auditor
	if *redisURL != "" {
		if rdb, err := connectRedis(ctx, *redisURL); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, mutations will not be audited")
		} else {
			defer rdb.Close()
			auditor = service.NewAuditService(rdb, nil, log)
		}
	}

	c := &cli{
		auth: repository.NewAuthRepository(upstream),
		sessions: service.NewExamSessionService(
			repository.NewExamSessionRepository(upstream),
			repository.NewExamRepository(upstream),
			auditor,
			config.OngoingPolicy(strings.ToLower(*policy)),
			log,
		),
		stdin:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
		log:    log,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "help" {
		usage(stdout, fs)
		return 0
	}

	auth, err := c.login(ctx, *email)
	if err != nil {
		fmt.Fprintln(stderr, "login:", describe(err))
		return 1
	}

	switch cmd {
	case "login":
		err = c.whoami(auth)
	case "list":
		err = c.list(ctx, auth, rest)
	case "cancel":
		err = c.mutate(ctx, auth, rest, "cancel")
	case "delete":
		err = c.mutate(ctx, auth, rest, "delete")
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr, fs)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}
	return 0
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: examctl [flags] <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  login                           verify credentials and show roles")
	fmt.Fprintln(w, "  list [-status s] [-subject s] [-q text]")
	fmt.Fprintln(w, "  cancel [-yes] <session-id>")
	fmt.Fprintln(w, "  delete [-yes] <session-id>")
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// login reads the password from EXAMCTL_PASSWORD or prompts for it without echo.
func (c *cli) login(ctx context.Context, email string) (*model.AuthContext, error) {
	if email == "" {
		fmt.Fprint(c.stderr, "Email: ")
		line, err := c.stdin.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password := os.Getenv("EXAMCTL_PASSWORD")
	if password == "" {
		fmt.Fprint(c.stderr, "Password: ")
		raw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(c.stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	res, err := c.auth.Login(ctx, email, password)
	if err != nil {
		if repository.IsStatus(err, http.StatusUnauthorized) || repository.IsStatus(err, http.StatusBadRequest) {
			return nil, service.ErrInvalidCredentials
		}
		return nil, err
	}
	if !res.User.Roles.HasAny(model.RoleTeacher, model.RoleProctor, model.RoleAdmin) {
		return nil, service.ErrNoConsoleRole
	}
	return &model.AuthContext{UpstreamToken: res.Token, User: res.User, IssuedAt: time.Now()}, nil
}

func (c *cli) whoami(auth *model.AuthContext) error {
	roles := make([]string, 0, len(auth.User.Roles))
	for _, r := range auth.User.Roles {
		roles = append(roles, string(r))
	}
	fmt.Fprintf(c.stdout, "Logged in as %s <%s> (%s)\n", auth.User.FullName, auth.User.Email, strings.Join(roles, ", "))
	return nil
}

func (c *cli) list(ctx context.Context, auth *model.AuthContext, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var filter model.SessionFilter
	status := fs.String("status", "", "scheduled, ongoing, completed or cancelled")
	fs.StringVar(&filter.SubjectName, "subject", "", "subject name")
	fs.StringVar(&filter.Search, "q", "", "search exam title, subject or access code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter.Status = model.SessionStatus(strings.ToLower(*status))

	list, err := c.sessions.List(ctx, auth, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXAM\tSUBJECT\tSTART\tEND\tCODE\tSTATUS")
	for _, s := range list.Sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.ExamTitle, s.SubjectName,
			s.StartAt.Local().Format("2006-01-02 15:04"),
			s.EndAt.Local().Format("2006-01-02 15:04"),
			s.AccessCode, s.DisplayStatus)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "\nscheduled %d  ongoing %d  completed %d  cancelled %d\n",
		list.Counts.Scheduled, list.Counts.Ongoing, list.Counts.Completed, list.Counts.Cancelled)
	return nil
}

func (c *cli) mutate(ctx context.Context, auth *model.AuthContext, args []string, action string) error {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s needs exactly one session id", action)
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id < 1 {
		return fmt.Errorf("invalid session id %q", fs.Arg(0))
	}

	if !*yes {
		fmt.Fprintf(c.stderr, "%s session %d? [y/N] ", strings.ToUpper(action[:1])+action[1:], id)
		answer, _ := c.stdin.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(c.stdout, "aborted")
			return nil
		}
	}

	switch action {
	case "cancel":
		res, err := c.sessions.Cancel(ctx, auth, id)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(c.stderr, "warning:", w.Message)
		}
		if len(res.Warnings) > 0 {
			fmt.Fprintf(c.stdout, "session %d cancelled\n", id)
			return nil
		}
		fmt.Fprintf(c.stdout, "session %d is now %s\n", res.Session.ID, res.Session.DisplayStatus)
	case "delete":
		if err := c.sessions.Delete(ctx, auth, id); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "session %d deleted\n", id)
	}
	return nil
}

// describe turns upstream failures into a single readable line.
func describe(err error) string {
	var apiErr *repository.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
	case errors.Is(err, repository.ErrUpstreamUnavailable):
		return "upstream unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

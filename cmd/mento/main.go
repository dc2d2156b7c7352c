// Command mento drives the client core from a terminal: OTP login, profile
// loading, authenticated requests and logout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/internal/bootstrap"
	"github.com/jrsteele09/mento-client/internal/config"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/pkg/errors"
)

const usage = `usage: mento [-env-file path] <command> [flags]

commands:
  send-otp   -mobile <number> [-email <address>]
  resend-otp -mobile <number> [-email <address>]
  verify-otp -mobile <number> -otp <code>
  profile    load the profile and print the onboarding state
  get <path> send an authenticated GET to the backend
  status     show the stored session
  logout     end the local session
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("mento", flag.ContinueOnError)
	global.SetOutput(stderr)
	envFile := global.String("env-file", ".env", "dotenv file to load")
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	c, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	bootstrap.SetupLogging(c.GetEnv(), c.GetLogLevel(), stderr)

	app, err := bootstrap.New(ctx, c)
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer app.Close()

	unsubscribe := app.Bus.Subscribe(func(reason authevents.Reason) {
		notice := authevents.NoticeFor(reason)
		fmt.Fprintf(stderr, "%s: %s\n", notice.Title, notice.Message)
		if reason.IsSessionExpiry() {
			fmt.Fprintln(stderr, "Run \"mento send-otp\" and \"mento verify-otp\" to sign in again.")
		}
	})
	defer unsubscribe()

	cli := &cli{app: app, stdout: stdout}
	command, rest := global.Arg(0), global.Args()[1:]
	if err := cli.dispatch(ctx, command, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	return 0
}

type cli struct {
	app    *bootstrap.App
	stdout io.Writer
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "send-otp":
		return c.sendOTP(ctx, args, false)
	case "resend-otp":
		return c.sendOTP(ctx, args, true)
	case "verify-otp":
		return c.verifyOTP(ctx, args)
	case "profile":
		return c.profile(ctx)
	case "get":
		return c.get(ctx, args)
	case "status":
		return c.status(ctx)
	case "logout":
		return c.app.Login.Logout(ctx)
	}
	return errors.Wrapf(errUsage, "unknown command %q", command)
}

func (c *cli) sendOTP(ctx context.Context, args []string, resend bool) error {
	fs := flag.NewFlagSet("send-otp", flag.ContinueOnError)
	mobile := fs.String("mobile", "", "10-digit mobile number")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil || *mobile == "" {
		return errors.Wrap(errUsage, "-mobile is required")
	}

	send := c.app.Login.SendOTP
	if resend {
		send = c.app.Login.ResendOTP
	}
	message, err := send(ctx, *mobile, *email)
	if err != nil {
		return err
	}
	if message == "" {
		message = "OTP sent"
	}
	fmt.Fprintln(c.stdout, message)
	return nil
}

func (c *cli) verifyOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-otp", flag.ContinueOnError)
	mobile := fs.String("mobile", "", "10-digit mobile number")
	otp := fs.String("otp", "", "code received by SMS")
	if err := fs.Parse(args); err != nil || *mobile == "" || *otp == "" {
		return errors.Wrap(errUsage, "-mobile and -otp are required")
	}

	result, err := c.app.Login.VerifyOTP(ctx, *mobile, *otp)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s (user %s, new: %t)\n", result.Message, result.User.ID, result.IsNewUser)
	return nil
}

type profileOutput struct {
	User         *profile.UserProfile      `json:"user"`
	Worker       *profile.WorkerProfile    `json:"worker,omitempty"`
	JobSeeker    *profile.JobSeekerProfile `json:"jobSeeker,omitempty"`
	FlowState    profile.FlowState         `json:"flowState"`
	JobFlowState profile.JobFlowState      `json:"jobFlowState"`
	WorkerSetup  profile.SetupStatus       `json:"workerSetup"`
	JobSetup     profile.SetupStatus       `json:"jobSetup"`
}

func (c *cli) profile(ctx context.Context) error {
	if err := c.app.Profile.Load(ctx); err != nil {
		return err
	}
	state := c.app.Profile.State()
	return c.printJSON(profileOutput{
		User:         state.User,
		Worker:       state.Worker,
		JobSeeker:    state.JobSeeker,
		FlowState:    state.FlowState,
		JobFlowState: state.JobFlowState,
		WorkerSetup:  profile.WorkerSetupStatus(state.User),
		JobSetup:     profile.JobSetupStatus(state.User),
	})
}

func (c *cli) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "get takes exactly one path")
	}
	resp, err := c.app.Gateway.Get(ctx, c.app.Endpoints.URL(args[0]), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(c.stdout, resp.Status)
	if _, err := io.Copy(c.stdout, resp.Body); err != nil {
		return errors.Wrap(err, "read response")
	}
	fmt.Fprintln(c.stdout)
	return nil
}

type statusOutput struct {
	State            string     `json:"state"`
	UserID           string     `json:"userId,omitempty"`
	HasAccessToken   bool       `json:"hasAccessToken"`
	AccessExpiresAt  *time.Time `json:"accessExpiresAt,omitempty"`
	HasRefreshToken  bool       `json:"hasRefreshToken"`
	RefreshIssuedAt  *time.Time `json:"refreshIssuedAt,omitempty"`
	RefreshExpired   bool       `json:"refreshExpired"`
	RefreshMaxAgeHrs float64    `json:"refreshMaxAgeHours"`
}

func (c *cli) status(ctx context.Context) error {
	creds := c.app.Credentials
	stored, err := creds.Load(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{
		State:            string(c.app.Lifecycle.State()),
		UserID:           creds.UserID(ctx),
		HasAccessToken:   stored.AccessToken != "",
		HasRefreshToken:  stored.RefreshToken != "",
		RefreshExpired:   creds.IsRefreshTokenExpired(ctx),
		RefreshMaxAgeHrs: creds.MaxAge().Hours(),
	}
	if info, err := credentials.InspectToken(stored.AccessToken); err == nil && !info.ExpiresAt.IsZero() {
		out.AccessExpiresAt = &info.ExpiresAt
	}
	if !stored.IssuedAt.IsZero() {
		out.RefreshIssuedAt = &stored.IssuedAt
	}
	return c.printJSON(out)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package regctl implements the command line client of the registration API.
package regctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/appstate"
	"github.com/Shivanand-hulikatti/premierdelan/internal/auth"
	"github.com/Shivanand-hulikatti/premierdelan/internal/client"
	"github.com/Shivanand-hulikatti/premierdelan/internal/config"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
	"github.com/Shivanand-hulikatti/premierdelan/internal/session"
)

const usage = `usage: regctl [-api URL] [-state FILE] <command> [flags]

commands:
  token     mint an access token (needs JWT_SECRET)
  login     store an access token
  logout    forget the stored token
  whoami    show the logged-in account
  events    list events
  register  register a party for an event
  edit      change the party of a registration
  cancel    delete a registration
  registrations  list an event's registrations (admin)
  status    open or close an event (admin)
`

// ErrUsage is returned for an unknown or missing command.
var ErrUsage = errors.New("invalid usage")

type app struct {
	cfg    config.CLI
	out    io.Writer
	logger *zap.Logger
	state  *appstate.Store
}

// Run executes the command in args. out receives the command's output.
func Run(ctx context.Context, cfg config.CLI, args []string, out io.Writer, logger *zap.Logger) error {
	if out == nil {
		return errors.New("output is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	global := flag.NewFlagSet("regctl", flag.ContinueOnError)
	global.SetOutput(out)
	global.Usage = func() { fmt.Fprint(out, usage) }
	global.StringVar(&cfg.APIURL, "api", cfg.APIURL, "API base URL")
	global.StringVar(&cfg.StatePath, "state", cfg.StatePath, "session state file")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return ErrUsage
	}

	a := &app{cfg: cfg, out: out, logger: logger}
	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "token" {
		return a.token(cmdArgs)
	}

	state, err := appstate.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer state.Close()
	if err := state.Init(); err != nil {
		return err
	}
	a.state = state

	switch cmd {
	case "login":
		return a.login(cmdArgs)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "events":
		return a.events(ctx)
	case "register":
		return a.register(ctx, cmdArgs)
	case "edit":
		return a.edit(ctx, cmdArgs)
	case "cancel":
		return a.cancel(ctx, cmdArgs)
	case "registrations":
		return a.registrations(ctx, cmdArgs)
	case "status":
		return a.status(ctx, cmdArgs)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) api() (*client.Client, error) {
	return client.New(a.cfg.APIURL, client.WithTokenSource(a.state), client.WithLogger(a.logger))
}

func (a *app) profile() (appstate.Profile, error) {
	p, err := a.state.Profile()
	if err != nil {
		return p, fmt.Errorf("%w: run regctl login first", err)
	}
	return p, nil
}

func (a *app) token(args []string) error {
	fs := a.flags("token")
	email := fs.String("email", "", "account email")
	admin := fs.Bool("admin", false, "grant administrator access")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	signer, err := auth.NewSigner(a.cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	tok, err := signer.Issue(*email, *admin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, tok)
	return err
}

func (a *app) login(args []string) error {
	fs := a.flags("login")
	tok := fs.String("token", "", "access token (or first argument)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tok == "" && fs.NArg() > 0 {
		*tok = fs.Arg(0)
	}
	if *tok == "" {
		return fmt.Errorf("%w: login needs a token", ErrUsage)
	}
	p, err := a.state.Login(*tok)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "logged in as %s\n", p.Email)
	return err
}

func (a *app) logout() error {
	if err := a.state.Teardown(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, "logged out")
	return err
}

func (a *app) whoami() error {
	p, err := a.profile()
	if err != nil {
		return err
	}
	role := "member"
	if p.Admin {
		role = "admin"
	}
	_, err = fmt.Fprintf(a.out, "%s (%s), token expires %s\n", p.Email, role, p.ExpiresAt.Format(time.RFC3339))
	return err
}

func (a *app) events(ctx context.Context) error {
	api, err := a.api()
	if err != nil {
		return err
	}
	events, err := api.ListEvents(ctx)
	if err != nil {
		return errors.New(client.Message(err))
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEATS\tSTATUS")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", ev.ID, ev.Name, ev.BookedCount, ev.Capacity, ev.Status)
	}
	return tw.Flush()
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	eventID := fs.String("event", "", "event id")
	people := fs.Int("people", 0, "party size including you (default: 1 + companions)")
	var companions companionFlags
	fs.Var(&companions, "companion", `companion as "First,Last,adult|minor" (repeatable)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" {
		return fmt.Errorf("%w: register needs -event", ErrUsage)
	}
	p, err := a.profile()
	if err != nil {
		return err
	}
	api, err := a.api()
	if err != nil {
		return err
	}
	event, err := api.GetEvent(ctx, *eventID)
	if err != nil {
		return errors.New(client.Message(err))
	}

	form := session.NewForm(api, *event, p.Email, a.logger)
	comp := form.Composition()
	want := *people
	if want == 0 {
		want = len(companions) + 1
	}
	for comp.HeadCount() < want {
		if !comp.Increment() {
			return fmt.Errorf("only %d seat(s) left for %s", event.Remaining(), event.Name)
		}
	}
	if err := companions.apply(comp); err != nil {
		return err
	}

	id, err := form.Submit(ctx)
	if err != nil {
		return errors.New(form.Err())
	}
	_, err = fmt.Fprintf(a.out, "registered %d people for %s (registration %s)\n", comp.HeadCount(), event.Name, id)
	return err
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flags("edit")
	eventID := fs.String("event", "", "event id")
	regID := fs.String("id", "", "registration id")
	people := fs.Int("people", 0, "new party size including you")
	var companions companionFlags
	fs.Var(&companions, "companion", `companion as "First,Last,adult|minor", replacing from the first (repeatable)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := a.manager(ctx, *eventID, *regID)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.BeginEdit(); err != nil {
		return err
	}
	w := m.Working()
	if *people > 0 {
		w.SetHeadCount(*people)
	}
	if err := companions.apply(w); err != nil {
		return err
	}
	if err := m.Commit(ctx); err != nil {
		return errors.New(m.Err())
	}
	reg := m.Registration()
	_, err = fmt.Fprintf(a.out, "registration %s now covers %d people\n", reg.ID, reg.HeadCount)
	return err
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := a.flags("cancel")
	eventID := fs.String("event", "", "event id")
	regID := fs.String("id", "", "registration id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := a.manager(ctx, *eventID, *regID)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.BeginDelete(); err != nil {
		return err
	}
	if err := m.ConfirmDelete(ctx); err != nil {
		return errors.New(m.Err())
	}
	_, err = fmt.Fprintf(a.out, "registration %s cancelled\n", *regID)
	return err
}

func (a *app) registrations(ctx context.Context, args []string) error {
	fs := a.flags("registrations")
	eventID := fs.String("event", "", "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" {
		return fmt.Errorf("%w: registrations needs -event", ErrUsage)
	}
	if _, err := a.profile(); err != nil {
		return err
	}
	api, err := a.api()
	if err != nil {
		return err
	}
	list, err := api.ListRegistrations(ctx, *eventID)
	if err != nil {
		return errors.New(client.Message(err))
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tPEOPLE\tCOMPANIONS")
	for _, reg := range list.Registrations {
		names := make([]string, len(reg.Companions))
		for i, c := range reg.Companions {
			names[i] = c.FirstName + " " + c.LastName
			if !c.IsAdult {
				names[i] += " (minor)"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", reg.ID, reg.UserEmail, reg.HeadCount, strings.Join(names, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := list.Summary
	_, err = fmt.Fprintf(a.out, "%d registrations, %d people (%d adult and %d minor companions)\n",
		s.Registrations, s.People, s.AdultCompanions, s.MinorCompanions)
	return err
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := a.flags("status")
	eventID := fs.String("event", "", "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" || fs.NArg() != 1 {
		return fmt.Errorf("%w: status needs -event and open or closed", ErrUsage)
	}
	if _, err := a.profile(); err != nil {
		return err
	}
	api, err := a.api()
	if err != nil {
		return err
	}
	ev, err := api.SetEventStatus(ctx, *eventID, fs.Arg(0))
	if err != nil {
		return errors.New(client.Message(err))
	}
	_, err = fmt.Fprintf(a.out, "%s is now %s\n", ev.Name, ev.Status)
	return err
}

func (a *app) manager(ctx context.Context, eventID, regID string) (*session.Manager, error) {
	if eventID == "" || regID == "" {
		return nil, fmt.Errorf("%w: -event and -id are required", ErrUsage)
	}
	if _, err := a.profile(); err != nil {
		return nil, err
	}
	api, err := a.api()
	if err != nil {
		return nil, err
	}
	reg, err := api.GetRegistration(ctx, eventID, regID)
	if err != nil {
		return nil, errors.New(client.Message(err))
	}
	return session.NewManager(api, eventID, *reg, a.logger), nil
}

// companionFlags collects repeated -companion values.
type companionFlags []party.Companion

func (c *companionFlags) String() string {
	parts := make([]string, len(*c))
	for i, p := range *c {
		parts[i] = p.FirstName + " " + p.LastName
	}
	return strings.Join(parts, ", ")
}

func (c *companionFlags) Set(v string) error {
	fields := strings.Split(v, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("companion %q: want First,Last[,adult|minor]", v)
	}
	comp := party.New(0)
	comp.Increment()
	comp.SetFirstName(0, strings.TrimSpace(fields[0]))
	comp.SetLastName(0, strings.TrimSpace(fields[1]))
	if len(fields) == 3 && !comp.SetField(0, party.FieldIsAdult, strings.TrimSpace(fields[2])) {
		return fmt.Errorf("companion %q: age must be adult or minor", v)
	}
	got, _ := comp.Companion(0)
	*c = append(*c, got)
	return nil
}

// apply writes the collected companions over the first slots of comp.
func (c companionFlags) apply(comp *party.Composition) error {
	if len(c) > comp.HeadCount()-1 {
		return fmt.Errorf("%d companions given for a party of %d", len(c), comp.HeadCount())
	}
	for i, p := range c {
		comp.SetFirstName(i, p.FirstName)
		comp.SetLastName(i, p.LastName)
		comp.SetAdult(i, p.IsAdult)
	}
	return nil
}

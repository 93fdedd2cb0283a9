// parasctl is the terminal client for the PARAS room loan system. It keeps a
// single local session in the SQLite store, so a login survives across
// invocations the way a browser session would.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"paras/internal/booking"
	"paras/internal/config"
	"paras/internal/domain"
	"paras/internal/export"
	"paras/internal/logging"
	"paras/internal/models"
	"paras/internal/paras"
	"paras/internal/service"
	"paras/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// localSessionID is the fixed id of the CLI's one session.
const localSessionID = "local"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: parasctl <command> [arguments]

Commands:
  login -nrp <nrp>                     authenticate and store the session
  logout                               clear the stored session
  whoami                               show the logged-in profile
  rooms                                list rooms
  room <id>                            show one room
  availability -start <t> -end <t>     find free rooms for a window
  book -room <id> -start <t> -end <t> [-notes <text>]
  loans                                list loans
  loan <id>                            show one loan with its legal actions
  history <id>                         show a loan's status history
  cancel <id>                          cancel a loan
  approve [-comment <text>] <id>       approve a loan (admin)
  reject [-comment <text>] <id>        reject a loan (admin)
  export                               write loans to an Excel file

Times use the format 2006-01-02T15:04, local campus time.
`)
}

type app struct {
	cfg      *config.Config
	sessions *session.Manager
	bookings *service.BookingService
	rooms    *service.RoomService
	store    *session.SQLiteStore
	logger   *zerolog.Logger
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("command is required")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The CLI logs warnings only; command output goes to stdout directly.
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.Output = "stderr"
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	store, err := session.NewSQLiteStore(cfg.Sessions.SQLitePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	upstream := paras.NewClient(cfg.Paras.BaseURL, cfg.Paras.Timeout())
	bind := func(token string) domain.API {
		return upstream.WithToken(token)
	}

	rules := booking.NewRules(
		cfg.Booking.OpeningMinute,
		cfg.Booking.ClosingMinute,
		cfg.Booking.MaxDurationMins,
		cfg.Booking.MinLeadMins,
	)

	a := &app{
		cfg:      cfg,
		sessions: session.NewManager(store, bind, cfg.Sessions.TTL(), logger),
		bookings: service.NewBookingService(bind, nil, nil, rules, logger),
		rooms:    service.NewRoomService(bind, logger),
		store:    store,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return a.dispatch(ctx, args[0], args[1:])
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.sessions.Logout(ctx, localSessionID)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "rooms":
		return a.cmdRooms(ctx)
	case "room":
		return a.cmdRoom(ctx, args)
	case "availability":
		return a.cmdAvailability(ctx, args)
	case "book":
		return a.cmdBook(ctx, args)
	case "loans":
		return a.cmdLoans(ctx)
	case "loan":
		return a.cmdLoan(ctx, args)
	case "history":
		return a.cmdHistory(ctx, args)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "approve":
		return a.cmdDecide(ctx, models.ActionApprove, args)
	case "reject":
		return a.cmdDecide(ctx, models.ActionReject, args)
	case "export":
		return a.cmdExport(ctx)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// requireSession resolves the stored session and refuses to proceed unless it
// is fully authenticated.
func (a *app) requireSession(ctx context.Context) (*session.Session, error) {
	sess, state, err := a.sessions.Resolve(ctx, localSessionID)
	if err != nil {
		return nil, err
	}
	if state != session.StateAuthenticated {
		return nil, errors.New("not logged in, run: parasctl login -nrp <nrp>")
	}
	return sess, nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	nrp := fs.String("nrp", "", "campus id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nrp == "" {
		return errors.New("-nrp is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	sess, err := a.sessions.Login(ctx, localSessionID, models.LoginRequest{
		NRP:      strings.TrimSpace(*nrp),
		Password: string(passBytes),
	})
	if err != nil {
		return loginError(err)
	}

	name := sess.NRP()
	if sess.Profile != nil && sess.Profile.FullName != nil {
		name = *sess.Profile.FullName
	}
	fmt.Printf("Logged in as %s (%s)\n", name, strings.Join(sess.Profile.Roles, ", "))
	return nil
}

// loginError keeps credential failures short instead of dumping the raw
// upstream response.
func loginError(err error) error {
	if he, ok := paras.AsHTTPError(err); ok && he.IsAuth() {
		return errors.New("login failed: invalid credentials")
	}
	return err
}

func (a *app) cmdWhoami(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	return printJSON(sess.Profile)
}

func (a *app) cmdRooms(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	rooms, err := a.rooms.List(ctx, sess)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tCAPACITY\tACTIVE\tID")
	for _, room := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", room.Code, room.Name, room.Capacity, room.IsActive, room.ID)
	}
	return w.Flush()
}

func (a *app) cmdRoom(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: parasctl room <id>")
	}
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	room, err := a.rooms.Get(ctx, sess, args[0])
	if err != nil {
		return err
	}
	return printJSON(room)
}

func (a *app) cmdAvailability(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("availability", flag.ContinueOnError)
	start := fs.String("start", "", "window start (2006-01-02T15:04)")
	end := fs.String("end", "", "window end (2006-01-02T15:04)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	rooms, err := a.bookings.SearchAvailability(ctx, sess, *start, *end)
	if err != nil {
		return windowError(err)
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms available for that window.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tCAPACITY\tID")
	for _, room := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", room.Code, room.Name, room.Capacity, room.ID)
	}
	return w.Flush()
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	room := fs.String("room", "", "room id")
	start := fs.String("start", "", "window start (2006-01-02T15:04)")
	end := fs.String("end", "", "window end (2006-01-02T15:04)")
	notes := fs.String("notes", "", "purpose of the loan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *room == "" {
		return errors.New("-room is required")
	}

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	loan, err := a.bookings.CreateLoan(ctx, sess, *room, *start, *end, *notes)
	if err != nil {
		return windowError(err)
	}
	fmt.Printf("Loan %s submitted, status: %s\n", loan.ID, loan.Status)
	return nil
}

// windowError unpacks validation violations into one line each.
func windowError(err error) error {
	var ve *paras.ValidationError
	if errors.As(err, &ve) {
		return errors.New("invalid window:\n  " + strings.Join(ve.Violations, "\n  "))
	}
	return err
}

func (a *app) cmdLoans(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	loans, err := a.bookings.Loans(ctx, sess)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROOM\tSTART\tEND\tSTATUS\tREQUESTER")
	for _, loan := range loans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			loan.ID, loan.RoomCode, loan.StartTime, loan.EndTime, loan.Status, loan.RequesterName)
	}
	return w.Flush()
}

func (a *app) cmdLoan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: parasctl loan <id>")
	}
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	loan, err := a.bookings.Loan(ctx, sess, args[0])
	if err != nil {
		return err
	}
	if err := printJSON(loan); err != nil {
		return err
	}

	actions := models.ActionsFor(loan.Status, sess.IsAdmin())
	if len(actions) > 0 {
		parts := make([]string, len(actions))
		for i, action := range actions {
			parts[i] = string(action)
		}
		fmt.Println("Available actions:", strings.Join(parts, ", "))
	}
	return nil
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: parasctl history <id>")
	}
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	history, err := a.bookings.History(ctx, sess, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tFROM\tTO\tBY\tCOMMENT")
	for _, event := range history {
		comment := ""
		if event.Comment != nil {
			comment = *event.Comment
		}
		changedBy := ""
		if event.ChangedBy != nil {
			changedBy = *event.ChangedBy
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			event.ChangedAt, event.FromStatus, event.ToStatus, changedBy, comment)
	}
	return w.Flush()
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: parasctl cancel <id>")
	}
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	loan, err := a.bookings.Cancel(ctx, sess, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Loan %s is now %s\n", loan.ID, loan.Status)
	return nil
}

func (a *app) cmdDecide(ctx context.Context, action models.LoanAction, args []string) error {
	fs := flag.NewFlagSet(string(action), flag.ContinueOnError)
	comment := fs.String("comment", "", "decision comment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: parasctl %s [-comment <text>] <id>", action)
	}

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	result, err := a.bookings.ChangeStatus(ctx, sess, fs.Arg(0), action, *comment)
	if err != nil {
		return err
	}
	fmt.Printf("Loan %s: %s -> %s\n", result.LoanID, result.FromStatus, result.ToStatus)
	return nil
}

func (a *app) cmdExport(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	loans, err := a.bookings.Loans(ctx, sess)
	if err != nil {
		return err
	}

	path, err := export.LoansToFile(loans, a.cfg.Exports.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d loans to %s\n", len(loans), path)
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"mutari/internal/apiclient"
	"mutari/internal/draftstore"
	"mutari/internal/notice"
	"mutari/internal/session"
	"mutari/internal/wizard"
	"mutari/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var draftCommand = &cli.Command{
	Name:  "draft",
	Usage: "Fill in and submit a moving request from the terminal",
	Subcommands: []*cli.Command{
		{
			Name:   "show",
			Usage:  "Print the stored draft and what is still missing",
			Action: draftShow,
		},
		{
			Name:      "set",
			Usage:     "Change fields of a step, e.g. set origin county=Cluj city=Cluj-Napoca rooms=2",
			ArgsUsage: "<step> key=value...",
			Action:    draftSet,
		},
		{
			Name:   "next",
			Usage:  "Validate the current step and move to the next one",
			Action: draftNext,
		},
		{
			Name:      "edit",
			Usage:     "Go back to an earlier step",
			ArgsUsage: "<step>",
			Action:    draftEdit,
		},
		{
			Name:  "submit",
			Usage: "Send the finished draft to the API",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Usage: "Sign in before submitting"},
				&cli.StringFlag{Name: "password", EnvVars: []string{"MUTARI_PASSWORD"}},
			},
			Action: draftSubmit,
		},
		{
			Name:   "clear",
			Usage:  "Discard the stored draft",
			Action: draftClear,
		},
	},
}

type draftCLI struct {
	config  *types.Config
	logger  *logrus.Logger
	store   *draftstore.FileStore
	client  *apiclient.Client
	session *session.Manager
}

func newDraftCLI(c *cli.Context) (*draftCLI, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	path := cfg.DraftFile
	if path == "" {
		path, err = draftstore.DefaultFilePath()
		if err != nil {
			return nil, err
		}
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return &draftCLI{
		config:  cfg,
		logger:  logger,
		store:   draftstore.NewFileStore(path),
		client:  apiclient.New(cfg.APIURL, nil),
		session: session.NewManager(),
	}, nil
}

func (d *draftCLI) machine(ctx context.Context) (*wizard.Machine, error) {
	submitter := &apiclient.GuestSubmitter{Client: d.client, Session: d.session}
	return wizard.New(ctx, d.store, submitter, notice.Func(printNotice), d.logger)
}

func printNotice(n notice.Notice) {
	fmt.Printf("[%s] %s\n", n.Level, n.Message)
}

func draftShow(c *cli.Context) error {
	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	m, err := d.machine(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Draft file: %s\n", d.store.Path)
	fmt.Printf("Current step: %s\n", m.CurrentStep())
	_, _ = pp.Println(m.Draft())

	if errs := wizard.ValidateStep(m.Draft(), m.CurrentStep()); len(errs) > 0 {
		fmt.Println("Missing on this step:")
		_, _ = pp.Println(errs.Map())
	}

	return nil
}

func draftSet(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: draft set <step> key=value...")
	}

	step, ok := wizard.ParseStep(c.Args().First())
	if !ok {
		return fmt.Errorf("unknown step %q", c.Args().First())
	}

	values := url.Values{}
	for _, arg := range c.Args().Tail() {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		values.Add(key, value)
	}

	updates, err := wizard.DecodeStepForm(step, values)
	if err != nil {
		return err
	}

	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	m, err := d.machine(c.Context)
	if err != nil {
		return err
	}

	if err := m.Apply(c.Context, updates...); err != nil {
		var errs wizard.FieldErrors
		switch {
		case errors.Is(err, wizard.ErrStepInert):
			return fmt.Errorf("step %s is not reachable yet, current step is %s", step, m.CurrentStep())
		case errors.As(err, &errs):
			_, _ = pp.Println(errs.Map())
			return cli.Exit("", 1)
		}
		return err
	}

	fmt.Printf("Updated %d field(s) on %s\n", len(updates), step)
	return nil
}

func draftNext(c *cli.Context) error {
	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	m, err := d.machine(c.Context)
	if err != nil {
		return err
	}

	if errs := m.Advance(c.Context, m.CurrentStep()); len(errs) > 0 {
		_, _ = pp.Println(errs.Map())
		return cli.Exit("", 1)
	}

	fmt.Printf("Current step: %s\n", m.CurrentStep())
	return nil
}

func draftEdit(c *cli.Context) error {
	step, ok := wizard.ParseStep(c.Args().First())
	if !ok {
		return fmt.Errorf("unknown step %q", c.Args().First())
	}

	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	m, err := d.machine(c.Context)
	if err != nil {
		return err
	}

	if err := m.EditStep(c.Context, step); err != nil {
		return err
	}

	fmt.Printf("Current step: %s\n", m.CurrentStep())
	return nil
}

func draftSubmit(c *cli.Context) error {
	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	if email := c.String("email"); email != "" {
		if err := d.signIn(c.Context, email, c.String("password")); err != nil {
			return err
		}
	}

	m, err := d.machine(c.Context)
	if err != nil {
		return err
	}

	code, err := m.Submit(c.Context)
	if err != nil {
		var errs wizard.FieldErrors
		switch {
		case errors.As(err, &errs):
			_, _ = pp.Println(errs.Map())
		case errors.Is(err, wizard.ErrNotFinalStep):
			fmt.Printf("Finish every step first, current step is %s\n", m.CurrentStep())
		}
		return cli.Exit("", 1)
	}

	fmt.Println(code)
	return nil
}

func (d *draftCLI) signIn(ctx context.Context, email, password string) error {
	if password == "" {
		return fmt.Errorf("set --password or MUTARI_PASSWORD to sign in")
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognito := session.NewCognito(
		cognitoidentityprovider.NewFromConfig(awsConfig),
		d.config.CognitoClientID,
		d.session,
		d.logger,
	)
	cognito.OnSignIn(d.client.ProfileHook())

	if _, err := cognito.SignIn(ctx, email, password); err != nil {
		return err
	}

	return nil
}

func draftClear(c *cli.Context) error {
	d, err := newDraftCLI(c)
	if err != nil {
		return err
	}

	if err := d.store.Delete(c.Context); err != nil {
		return err
	}

	fmt.Println("Draft discarded")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jrsteele09/go-kinde-auth/auth"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/jrsteele09/go-kinde-auth/internal/utils"
	"github.com/rs/zerolog/log"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"Sign in through the browser", loginCommand},
	"register":     {"Create an account through the browser", registerCommand},
	"create-org":   {"Create an organization through the browser", createOrgCommand},
	"logout":       {"Forget the stored session and print the logout URL", logoutCommand},
	"status":       {"Show whether a session is stored and still valid", statusCommand},
	"token":        {"Print a fresh access or ID token", tokenCommand},
	"claims":       {"Print the user, permissions, roles and organizations", claimsCommand},
	"flags":        {"Print feature flags from the token or the Account API", flagsCommand},
	"entitlements": {"Print entitlements from the token or the Account API", entitlementsCommand},
	"profile":      {"Print the user profile from the Account API", profileCommand},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: kinde <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].summary)
	}
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	orgCode := fs.String("org", "", "organization code to sign in to")
	hint := fs.String("hint", "", "email to prefill")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := a.flowOptions(auth.WithOrgCode(*orgCode), auth.WithLoginHint(*hint))
	return a.finish("Signed in", a.client.Login(ctx, opts...))
}

func registerCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	plan := fs.String("plan", "", "plan the user is interested in")
	pricingTable := fs.String("pricing-table", "", "pricing table key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := a.flowOptions(auth.WithPlanInterest(*plan), auth.WithPricingTableKey(*pricingTable))
	return a.finish("Registered", a.client.Register(ctx, opts...))
}

func createOrgCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-org", flag.ContinueOnError)
	name := fs.String("name", "", "name of the new organization")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := a.flowOptions(auth.WithOrgName(*name))
	return a.finish("Organization created", a.client.CreateOrg(ctx, opts...))
}

func (a *app) flowOptions(opts ...auth.FlowOption) []auth.FlowOption {
	if a.settings.GetUseNonce() {
		opts = append(opts, auth.WithNonce())
	}
	return opts
}

func (a *app) finish(done string, err error) error {
	switch {
	case err == nil:
		details := utils.Value(a.client.GetUserDetails())
		log.Info().Str("email", details.Email).Str("user_id", details.ID).Msg(done)
		return nil
	case autherrors.IsUserCancellation(err):
		log.Warn().Msg("Authentication was cancelled")
		return nil
	default:
		return err
	}
}

func logoutCommand(_ context.Context, a *app, _ []string) error {
	logoutURL := a.client.LogoutURL()
	if !a.client.Logout() {
		return fmt.Errorf("%w: the stored session could not be removed", autherrors.ErrFailedToSaveState)
	}
	log.Info().Msg("Signed out")
	if logoutURL != nil {
		fmt.Println(logoutURL.String())
	}
	return nil
}

type status struct {
	Authenticated bool       `json:"authenticated"`
	Authorized    bool       `json:"authorized"`
	Email         string     `json:"email,omitempty"`
	Organization  string     `json:"organization,omitempty"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	StoredAt      *time.Time `json:"stored_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

func statusCommand(_ context.Context, a *app, _ []string) error {
	return printJSON(a.status())
}

func (a *app) status() status {
	s := status{
		Authenticated: a.client.IsAuthenticated(),
		Authorized:    a.client.IsAuthorized(),
		Email:         utils.Value(a.client.GetUserDetails()).Email,
		Organization:  a.client.ValidateOrganization(""),
	}
	if state := a.client.State(); state != nil {
		if !state.Expiry.IsZero() {
			s.Expiry = utils.Ptr(state.Expiry)
		}
		s.LastError = state.LastError
	}
	if a.storedAt != nil {
		storedAt, err := a.storedAt(a.stateKey())
		switch {
		case err == nil:
			s.StoredAt = utils.Ptr(storedAt)
		case !errors.Is(err, credentials.ErrNotFound):
			log.Warn().Err(err).Msg("Failed to read when the session was stored")
		}
	}
	return s
}

func tokenCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	id := fs.Bool("id", false, "print the ID token instead of the access token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	desired := authstate.AccessToken
	if *id {
		desired = authstate.IDToken
	}
	tok, err := a.client.GetToken(ctx, desired)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func claimsCommand(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("claims", flag.ContinueOnError)
	name := fs.String("claim", "", "print a single access token claim")
	fromID := fs.Bool("id", false, "read -claim from the ID token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.client.IsAuthenticated() {
		return autherrors.ErrNotAuthenticated
	}

	if *name != "" {
		tokenType := authstate.AccessToken
		if *fromID {
			tokenType = authstate.IDToken
		}
		claim := a.client.GetClaim(*name, tokenType)
		if claim == nil {
			return fmt.Errorf("claim %q is not present", *name)
		}
		return printJSON(claim)
	}

	return printJSON(map[string]any{
		"user":          a.client.GetUserDetails(),
		"permissions":   a.client.GetPermissions(),
		"roles":         a.client.GetRoles(),
		"organization":  a.client.GetOrganization(),
		"organizations": a.client.GetUserOrganizations(),
	})
}

func flagsCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("flags", flag.ContinueOnError)
	remote := fs.Bool("remote", false, "read flags from the Account API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*remote {
		return printJSON(a.client.GetAllFlags())
	}
	flags, err := a.client.FetchFlags(ctx)
	if err != nil {
		return err
	}
	return printJSON(flags)
}

func entitlementsCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("entitlements", flag.ContinueOnError)
	remote := fs.Bool("remote", false, "read entitlements from the Account API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*remote {
		return printJSON(a.client.GetEntitlements())
	}
	all, err := a.client.FetchAllEntitlements(ctx, 0)
	if err != nil {
		return err
	}
	return printJSON(all)
}

func profileCommand(ctx context.Context, a *app, _ []string) error {
	profile, err := a.client.FetchUserProfile(ctx)
	if err != nil {
		return err
	}
	return printJSON(profile)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

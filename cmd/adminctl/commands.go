package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"adminpanel.org/internal/app"
	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

type cli struct {
	app    *app.App
	out    io.Writer
	errOut io.Writer
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.app.Logout(ctx)
	case "whoami":
		return c.whoami()
	case "menu":
		return c.menu()
	case "can":
		return c.can(args)
	case "list":
		return c.list(ctx, args)
	case "get":
		return c.get(ctx, args)
	case "create":
		return c.create(ctx, args)
	case "update":
		return c.update(ctx, args)
	case "delete", "remove":
		return c.destroy(ctx, cmd, args)
	case "dashboard":
		return c.dashboard(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := c.app.Login(ctx, model.Credentials{Email: *email, Password: *password}); err != nil {
		return err
	}
	return c.whoami()
}

func (c *cli) whoami() error {
	user := c.app.Session.CurrentUser()
	if user == nil {
		return auth.ErrNotAuthenticated
	}
	role := "-"
	if user.RoleAttribute != nil {
		role = user.RoleAttribute.RoleName
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s", user.Name, user.Email, role)
	if exp, ok := auth.Expiry(c.app.Session.Token()); ok {
		fmt.Fprintf(c.out, " expires=%s", exp.Local().Format(time.RFC3339))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) menu() error {
	if !c.app.Session.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Dashboard\t/")
	for _, item := range c.app.Menu() {
		fmt.Fprintf(tw, "%s\t%s\n", item.Label, item.Route)
	}
	return tw.Flush()
}

func (c *cli) can(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: can <module>", errUsage)
	}
	if !permission.Known(args[0]) {
		return fmt.Errorf("unknown module %q (known: %s)", args[0], joinModules())
	}
	t := c.app.Permissions.Resolve(args[0])
	fmt.Fprintf(c.out, "%s create=%t read=%t update=%t delete=%t\n", args[0], t.Create, t.Read, t.Update, t.Delete)
	return nil
}

func joinModules() string {
	names := make([]string, 0, len(permission.Modules()))
	for _, m := range permission.Modules() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// filterFlag collects repeated -filter key=value flags.
type filterFlag struct{ set entity.FilterSet }

func (f *filterFlag) String() string {
	parts := make([]string, 0, len(f.set))
	for _, flt := range f.set {
		parts = append(parts, flt.Key+"="+flt.Value)
	}
	return strings.Join(parts, ",")
}

func (f *filterFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("filter must be key=value, got %q", v)
	}
	f.set = f.set.With(strings.TrimSpace(key), value)
	return nil
}

func (c *cli) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: list <entity>", errUsage)
	}
	coll, err := c.collection(args[0])
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	page := fs.Int("page", 1, "page number")
	search := fs.String("search", "", "free text search")
	category := fs.String("category", "", "category name")
	var filters filterFlag
	fs.Var(&filters, "filter", "extra key=value filter, repeatable")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	set := filters.set
	if *category != "" {
		set = set.With("categoryName", *category)
	}
	if *search != "" {
		if !entity.SearchReady(*search) {
			return fmt.Errorf("search term must be at least %d characters", entity.MinSearchLength)
		}
		if *page != 1 {
			return fmt.Errorf("%w: -search always starts at page 1", errUsage)
		}
		if _, err := coll.SearchWithin(ctx, set, coll.Endpoint().SearchParam(), *search); err != nil {
			return err
		}
	} else if err := coll.LoadPage(ctx, *page, set); err != nil {
		return err
	}
	v := coll.View()
	if err := printJSON(c.out, v.Items); err != nil {
		return err
	}
	fmt.Fprintf(c.errOut, "page %d of %d  %s\n", v.CurrentPage, v.TotalPages, renderWindow(v.CurrentPage, v.TotalPages))
	return nil
}

// renderWindow draws the pagination bar, e.g. "« ‹ 1 … 4 [5] 6 … 10 › »".
func renderWindow(current, total int) string {
	controls := entity.Window(current, total, entity.DefaultSpan)
	parts := make([]string, 0, len(controls))
	for _, ctl := range controls {
		switch ctl.Kind {
		case entity.First:
			parts = append(parts, "«")
		case entity.Prev:
			parts = append(parts, "‹")
		case entity.Ellipsis:
			parts = append(parts, "…")
		case entity.Next:
			parts = append(parts, "›")
		case entity.Last:
			parts = append(parts, "»")
		case entity.PageNumber:
			if ctl.Current {
				parts = append(parts, "["+strconv.Itoa(ctl.Page)+"]")
			} else {
				parts = append(parts, strconv.Itoa(ctl.Page))
			}
		}
	}
	return strings.Join(parts, " ")
}

func (c *cli) get(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: get <entity> <id>", errUsage)
	}
	coll, err := c.collection(args[0])
	if err != nil {
		return err
	}
	if err := coll.LoadByID(ctx, args[1]); err != nil {
		return err
	}
	return printJSON(c.out, coll.View().Selected)
}

type payloadFlags struct {
	file  string
	media []string
}

func (c *cli) parsePayloadFlags(name string, args []string) (*payloadFlags, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	pf := &payloadFlags{}
	fs.StringVar(&pf.file, "f", "", "JSON payload file, - for stdin")
	fs.Func("media", "attach a file (products: media, categories: image), repeatable", func(v string) error {
		pf.media = append(pf.media, v)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if pf.file == "" {
		return nil, nil, fmt.Errorf("%w: -f is required", errUsage)
	}
	return pf, fs.Args(), nil
}

func (c *cli) create(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: create <entity> -f payload.json", errUsage)
	}
	coll, err := c.collection(args[0])
	if err != nil {
		return err
	}
	pf, _, err := c.parsePayloadFlags("create", args[1:])
	if err != nil {
		return err
	}
	payload, err := readPayload(coll, pf)
	if err != nil {
		return err
	}
	if err := coll.Create(ctx, payload); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s created\n", coll.Endpoint().Singular)
	return nil
}

func (c *cli) update(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: update <entity> <id> -f payload.json", errUsage)
	}
	coll, err := c.collection(args[0])
	if err != nil {
		return err
	}
	id := args[1]
	pf, _, err := c.parsePayloadFlags("update", args[2:])
	if err != nil {
		return err
	}
	payload, err := readPayload(coll, pf)
	if err != nil {
		return err
	}
	if err := coll.Update(ctx, id, payload); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s updated\n", coll.Endpoint().Singular, id)
	return nil
}

func (c *cli) destroy(ctx context.Context, op string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: %s <entity> <id>", errUsage, op)
	}
	coll, err := c.collection(args[0])
	if err != nil {
		return err
	}
	if op == "remove" {
		err = coll.Remove(ctx, args[1])
	} else {
		err = coll.Delete(ctx, args[1])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s %sd\n", coll.Endpoint().Singular, args[1], op)
	return nil
}

func (c *cli) dashboard(ctx context.Context) error {
	if err := c.app.LoadDashboard(ctx); err != nil {
		return err
	}
	d, _ := c.app.Dashboard.Value()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Users\t%d\n", d.TotalUsers)
	fmt.Fprintf(tw, "Orders\t%d\n", d.TotalOrders)
	fmt.Fprintf(tw, "Products\t%d\n", d.TotalProducts)
	fmt.Fprintf(tw, "Revenue\t%.2f\n", d.TotalRevenue)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(d.Recent) > 0 {
		fmt.Fprintln(c.out, "\nRecent activity:")
		for _, a := range d.Recent {
			fmt.Fprintf(c.out, "  %s  %s\n", model.FormatUnixMillis(a.At, time.Local), a.Message)
		}
	}
	return nil
}

func (c *cli) collection(name string) (app.Collection, error) {
	coll, ok := c.app.Collection(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (known: %s)", name, strings.Join(c.app.Entities(), ", "))
	}
	return coll, nil
}

func readPayload(coll app.Collection, pf *payloadFlags) (model.Payload, error) {
	var (
		raw []byte
		err error
	)
	if pf.file == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(pf.file)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	payload, err := coll.DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	files, err := readFiles(pf.media)
	if err != nil {
		return nil, err
	}
	return attach(payload, files)
}

func readFiles(paths []string) ([]model.File, error) {
	out := make([]model.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read media: %w", err)
		}
		out = append(out, model.File{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

// attach adds uploaded files to the payloads that carry them.
func attach(payload model.Payload, files []model.File) (model.Payload, error) {
	if len(files) == 0 {
		return payload, nil
	}
	switch in := payload.(type) {
	case model.ProductInput:
		in.Media = append(in.Media, files...)
		return in, nil
	case model.CategoryInput:
		if len(files) > 1 {
			return nil, errors.New("a category takes a single image")
		}
		in.Image = &files[0]
		return in, nil
	default:
		return nil, errors.New("this entity does not accept media")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

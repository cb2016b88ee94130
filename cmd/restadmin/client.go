// ABOUTME: Client commands that drive the auth and data providers against a REST backend.
// ABOUTME: Sessions persist in a sqlite key/value store; results print as JSON.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/restadmin/authprovider"
	"github.com/2389/restadmin/dataprovider"
	"github.com/2389/restadmin/httpclient"
	"github.com/2389/restadmin/session"
)

// clientSession is an open session store plus the providers built on it.
type clientSession struct {
	storage *session.SQLiteStorage
	auth    *authprovider.Provider
	data    *dataprovider.Provider
}

func (c *clientSession) Close() error {
	return c.storage.Close()
}

func (a *app) openClient() (*clientSession, error) {
	storage, err := session.OpenSQLite(a.cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	auth := authprovider.New(authprovider.Options{
		ObtainAuthTokenURL: a.cfg.TokenURL,
		ObtainUserInfoURL:  a.cfg.UserInfoURL,
		Store:              session.NewStore(storage),
		Logger:             a.logger,
	})
	return &clientSession{
		storage: storage,
		auth:    auth,
		data:    dataprovider.New(a.cfg.APIURL, auth.Client(httpclient.FetchJSON(nil))),
	}, nil
}

// withClient opens the session store for the duration of fn. Backend
// errors pass through CheckError so a 401 or 403 ends the session.
func (a *app) withClient(fn func(ctx context.Context, c *clientSession) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := a.openClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		result, err := fn(ctx, c)
		if err != nil {
			if logoutErr := c.auth.CheckError(ctx, err); logoutErr != nil {
				return fmt.Errorf("%w (session cleared, log in again)", logoutErr)
			}
			return err
		}
		if result == nil {
			return nil
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) clientCommands() []*cobra.Command {
	var (
		password string
		pathname string
	)

	loginCmd := &cobra.Command{
		Use:   "login USERNAME",
		Short: "Obtain a token and store the session",
		Long: `Exchange a username and password for a token, then store the token merged with
the user's info. Without --password the password is read from stdin.`,
		Args: cobra.ExactArgs(1),
	}
	loginCmd.Flags().StringVarP(&password, "password", "P", "", "Password (read from stdin when empty)")
	loginCmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		if password == "" {
			line, err := bufio.NewReader(loginCmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return nil, fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if err := c.auth.Login(ctx, loginCmd.Flags().Arg(0), password); err != nil {
			return nil, err
		}
		return c.auth.GetIdentity(ctx, "")
	})

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
			return nil, c.auth.Logout(ctx)
		}),
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Refresh and print the current identity",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
			return c.auth.GetIdentity(ctx, pathname)
		}),
	}
	whoamiCmd.Flags().StringVar(&pathname, "path", "", "Navigation path; anonymous paths skip the backend")

	permissionsCmd := &cobra.Command{
		Use:   "permissions",
		Short: "Print the stored groups and permissions",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
			return c.auth.GetPermissions(ctx, pathname)
		}),
	}
	permissionsCmd.Flags().StringVar(&pathname, "path", "", "Navigation path; anonymous paths return empty lists")

	return []*cobra.Command{
		loginCmd, logoutCmd, whoamiCmd, permissionsCmd,
		a.listCmd(), a.getCmd(), a.refsCmd(), a.createCmd(), a.updateCmd(), a.deleteCmd(),
	}
}

// listFlags are the pagination, sort, and filter flags shared by list and refs.
type listFlags struct {
	page    int
	perPage int
	sort    string
	order   string
	search  string
	filters []string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", 25, "Records per page")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort field")
	cmd.Flags().StringVar(&f.order, "order", dataprovider.SortAsc, "Sort order (ASC or DESC)")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "Free-text search")
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "Filter as key=value (repeatable; repeated keys match any value)")
}

func (f *listFlags) params() (dataprovider.Pagination, dataprovider.Sort, dataprovider.Filter, error) {
	order := strings.ToUpper(f.order)
	if order != dataprovider.SortAsc && order != dataprovider.SortDesc {
		return dataprovider.Pagination{}, dataprovider.Sort{}, nil, fmt.Errorf("invalid order %q", f.order)
	}
	filter, err := parseFilters(f.filters)
	if err != nil {
		return dataprovider.Pagination{}, dataprovider.Sort{}, nil, err
	}
	if f.search != "" {
		filter["q"] = f.search
	}
	return dataprovider.Pagination{Page: f.page, PerPage: f.perPage},
		dataprovider.Sort{Field: f.sort, Order: order},
		filter, nil
}

// parseFilters turns key=value pairs into a filter. A key given more than
// once becomes a list.
func parseFilters(pairs []string) (dataprovider.Filter, error) {
	filter := dataprovider.Filter{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", pair)
		}
		switch existing := filter[key].(type) {
		case nil:
			filter[key] = value
		case string:
			filter[key] = []string{existing, value}
		case []string:
			filter[key] = append(existing, value)
		}
	}
	return filter, nil
}

// parseID keeps numeric identifiers numeric so they round-trip unchanged.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func parseIDs(args []string) []any {
	ids := make([]any, len(args))
	for i, arg := range args {
		ids[i] = parseID(arg)
	}
	return ids
}

func (a *app) listCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list RESOURCE",
		Short: "List a page of records",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd)
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		pagination, sort, filter, err := flags.params()
		if err != nil {
			return nil, err
		}
		return c.data.GetList(ctx, cmd.Flags().Arg(0), dataprovider.GetListParams{
			Pagination: pagination,
			Sort:       sort,
			Filter:     filter,
		})
	})
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get RESOURCE ID [ID...]",
		Short: "Fetch one record, or several in parallel",
		Args:  cobra.MinimumNArgs(2),
	}
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		resource, ids := cmd.Flags().Arg(0), parseIDs(cmd.Flags().Args()[1:])
		if len(ids) == 1 {
			return c.data.GetOne(ctx, resource, dataprovider.GetOneParams{ID: ids[0]})
		}
		return c.data.GetMany(ctx, resource, dataprovider.GetManyParams{IDs: ids})
	})
	return cmd
}

func (a *app) refsCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "refs RESOURCE TARGET ID",
		Short: "List records whose TARGET field references ID",
		Args:  cobra.ExactArgs(3),
	}
	flags.register(cmd)
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		pagination, sort, filter, err := flags.params()
		if err != nil {
			return nil, err
		}
		args := cmd.Flags().Args()
		return c.data.GetManyReference(ctx, args[0], dataprovider.GetManyReferenceParams{
			Target:     args[1],
			ID:         parseID(args[2]),
			Pagination: pagination,
			Sort:       sort,
			Filter:     filter,
		})
	})
	return cmd
}

// recordFlags build a record from a JSON document plus file fields.
type recordFlags struct {
	data  string
	files []string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "{}", "Record fields as a JSON object")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "Attach a file as field=path (sends multipart form data)")
}

func (f *recordFlags) record() (dataprovider.Record, error) {
	rec := dataprovider.Record{}
	if err := json.Unmarshal([]byte(f.data), &rec); err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	for _, pair := range f.files {
		field, path, ok := strings.Cut(pair, "=")
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("invalid file %q, want field=path", pair)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		rec[field] = dataprovider.Upload{
			RawFile: &dataprovider.File{Name: filepath.Base(path), Data: content},
			Title:   filepath.Base(path),
		}
	}
	return rec, nil
}

func (a *app) createCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "create RESOURCE",
		Short: "Create a record",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd)
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		data, err := flags.record()
		if err != nil {
			return nil, err
		}
		return c.data.Create(ctx, cmd.Flags().Arg(0), dataprovider.CreateParams{Data: data})
	})
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "update RESOURCE ID [ID...]",
		Short: "Update one record, or several in parallel",
		Args:  cobra.MinimumNArgs(2),
	}
	flags.register(cmd)
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		data, err := flags.record()
		if err != nil {
			return nil, err
		}
		resource, ids := cmd.Flags().Arg(0), parseIDs(cmd.Flags().Args()[1:])
		if len(ids) == 1 {
			return c.data.Update(ctx, resource, dataprovider.UpdateParams{ID: ids[0], Data: data})
		}
		return c.data.UpdateMany(ctx, resource, dataprovider.UpdateManyParams{IDs: ids, Data: data})
	})
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete RESOURCE ID [ID...]",
		Short: "Delete one record, or several in parallel",
		Args:  cobra.MinimumNArgs(2),
	}
	cmd.RunE = a.withClient(func(ctx context.Context, c *clientSession) (any, error) {
		resource, ids := cmd.Flags().Arg(0), parseIDs(cmd.Flags().Args()[1:])
		if len(ids) == 1 {
			previous, err := c.data.GetOne(ctx, resource, dataprovider.GetOneParams{ID: ids[0]})
			if err != nil {
				return nil, err
			}
			return c.data.Delete(ctx, resource, dataprovider.DeleteParams{ID: ids[0], PreviousData: previous.Data})
		}
		return c.data.DeleteMany(ctx, resource, dataprovider.DeleteManyParams{IDs: ids})
	})
	return cmd
}

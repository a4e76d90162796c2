package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"truthordare/backend/internal/models"
	"truthordare/backend/internal/roomhub"
	"truthordare/backend/internal/storage"

	"github.com/spf13/cobra"
)

// admin is what every subcommand works with.
type admin struct {
	store *storage.Service
	rooms *roomhub.RoomService
}

type connectFunc func(ctx context.Context) (*admin, error)

type runFunc func(cmd *cobra.Command, a *admin, args []string) error

func newRootCmd(connect connectFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Operator tools for the Truth or Dare backend",
		SilenceUsage: true,
	}

	withAdmin := func(run runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			return run(cmd, a, args)
		}
	}

	rooms := &cobra.Command{Use: "rooms", Short: "Inspect and manage live rooms"}
	rooms.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List open rooms",
			Args:  cobra.NoArgs,
			RunE:  withAdmin(listRooms),
		},
		&cobra.Command{
			Use:   "show <room-id>",
			Short: "Print a room document",
			Args:  cobra.ExactArgs(1),
			RunE:  withAdmin(showRoom),
		},
		&cobra.Command{
			Use:   "delete <room-id>",
			Short: "Delete a room regardless of its owner",
			Args:  cobra.ExactArgs(1),
			RunE:  withAdmin(deleteRoom),
		},
		historyCmd(withAdmin),
		&cobra.Command{
			Use:   "watch <room-id>",
			Short: "Stream a room's events until interrupted",
			Args:  cobra.ExactArgs(1),
			RunE:  withAdmin(watchRoom),
		},
	)

	users := &cobra.Command{Use: "users", Short: "Inspect archived users"}
	users.AddCommand(&cobra.Command{
		Use:   "show <user-id>",
		Short: "Print an archived user",
		Args:  cobra.ExactArgs(1),
		RunE:  withAdmin(showUser),
	})

	root.AddCommand(rooms, users)
	return root
}

func historyCmd(withAdmin func(runFunc) func(*cobra.Command, []string) error) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <room-id>",
		Short: "Print a room's archived chat",
		Args:  cobra.ExactArgs(1),
		RunE: withAdmin(func(cmd *cobra.Command, a *admin, args []string) error {
			history, err := a.rooms.History(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "no archived messages")
				return nil
			}
			for _, h := range history {
				fmt.Fprintf(out, "%s  %s: %s\n", time.UnixMilli(h.SentAt).UTC().Format(time.RFC3339), h.Sender, h.Content)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "newest messages to print, 0 for all")
	return cmd
}

func listRooms(cmd *cobra.Command, a *admin, _ []string) error {
	rooms, err := a.rooms.ListRooms(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rooms) == 0 {
		fmt.Fprintln(out, "no open rooms")
		return nil
	}

	list := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOWNER\tPRIVATE\tPLAYERS\tVERSION")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%d\n", r.ID, r.Name, r.Owner, r.IsPrivate, strings.Join(r.Players, ","), r.Version)
	}
	return w.Flush()
}

func showRoom(cmd *cobra.Command, a *admin, args []string) error {
	room, err := a.rooms.GetRoom(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), room)
}

func deleteRoom(cmd *cobra.Command, a *admin, args []string) error {
	if err := a.rooms.ForceDeleteRoom(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "room %s deleted\n", args[0])
	return nil
}

func watchRoom(cmd *cobra.Command, a *admin, args []string) error {
	ctx := cmd.Context()
	ps := a.store.SubscribeRoom(ctx, args[0])
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				fmt.Fprintf(out, "unreadable event: %v\n", err)
				continue
			}
			switch {
			case event.Type == models.EventRoomDeleted:
				fmt.Fprintf(out, "room %s deleted\n", event.RoomID)
				return nil
			case event.Room != nil:
				r := event.Room
				fmt.Fprintf(out, "v%d players=%s turn=%s", r.Version, strings.Join(r.Players, ","), r.CurrentTurn)
				if event.Winner != "" {
					fmt.Fprintf(out, " winner=%s", event.Winner)
				}
				fmt.Fprintln(out)
			}
		}
	}
}

func showUser(cmd *cobra.Command, a *admin, args []string) error {
	user, err := a.store.GetUserByID(args[0])
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", args[0])
	}
	return printJSON(cmd.OutOrStdout(), user)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

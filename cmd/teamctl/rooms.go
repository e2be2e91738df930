package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/adapters/csvio"
)

var (
	roomsInput    string
	roomsOutput   string
	roomsCount    int
	roomsCapacity int
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Assign formed teams to rooms",
	Long: `Reads a team roster (a team, team_id or team_name column), fills
--rooms rooms of --capacity teams each in order, and writes the allocation.
Teams that do not fit are counted as dropped.`,
	Args: cobra.NoArgs,
	RunE: runRooms,
}

func init() {
	roomsCmd.Flags().StringVarP(&roomsInput, "input", "i", "", "Team roster")
	roomsCmd.Flags().StringVarP(&roomsOutput, "output", "o", "room_allocation.csv", "Allocation CSV to write")
	roomsCmd.Flags().IntVar(&roomsCount, "rooms", 0, "Rooms available")
	roomsCmd.Flags().IntVar(&roomsCapacity, "capacity", 0, "Teams per room")
	_ = roomsCmd.MarkFlagRequired("input")
	_ = roomsCmd.MarkFlagRequired("rooms")
	_ = roomsCmd.MarkFlagRequired("capacity")
}

func runRooms(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f, err := os.Open(roomsInput)
	if err != nil {
		return err
	}
	teams, err := csvio.ReadRoster(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	svc, stop, err := startService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	alloc, err := svc.AssignRooms(ctx, teams, roomsCount, roomsCapacity)
	if err != nil {
		return err
	}
	if err := writeFile(roomsOutput, func(f *os.File) error { return csvio.WriteRooms(f, alloc.Assignments) }); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d teams, dropped %d, written to %s\n",
		len(alloc.Assignments), len(alloc.Dropped), roomsOutput)
	return nil
}

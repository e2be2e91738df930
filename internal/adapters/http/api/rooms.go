package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/squadron/internal/adapters/csvio"
)

// Room request fields.
const (
	fieldTeamsFile      = "teams_file"
	fieldRoomsFile      = "rooms_file"
	fieldRoomsAvailable = "rooms_available"
	fieldRoomCapacity   = "room_capacity"
	headerTeamsDropped  = "X-Teams-Dropped"
)

// RoomsHandler assigns team rosters to rooms.
type RoomsHandler struct {
	deps    RoomsDependencies
	uploads *uploads
}

// NewRoomsHandler creates a new rooms handler.
func NewRoomsHandler(deps RoomsDependencies, up *uploads) *RoomsHandler {
	return &RoomsHandler{deps: deps, uploads: up}
}

// HandlePostRooms handles POST /rooms. The roster is the multipart file
// teams_file; the room counts come from form fields or from rooms_file.
func (h *RoomsHandler) HandlePostRooms(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rooms"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	multipart, err := h.uploads.limit(w, r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	if !multipart {
		writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("expected multipart/form-data")))
		return
	}

	roster, err := h.uploads.part(r, op, fieldTeamsFile)
	if err != nil {
		writeError(w, err)
		return
	}
	teams, err := csvio.ReadRoster(bytes.NewReader(roster))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	roomCount, capacity, err := h.roomParams(r, op)
	if err != nil {
		writeError(w, err)
		return
	}

	alloc, err := h.deps.AssignRooms(r.Context(), teams, roomCount, capacity)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}

	var buf bytes.Buffer
	if err := csvio.WriteRooms(&buf, alloc.Assignments); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.Header().Set(headerTeamsDropped, strconv.Itoa(len(alloc.Dropped)))
	writeCSV(w, "room_allocation.csv", &buf)
}

func (h *RoomsHandler) roomParams(r *http.Request, op string) (int, int, error) {
	rawRooms := strings.TrimSpace(r.FormValue(fieldRoomsAvailable))
	rawCapacity := strings.TrimSpace(r.FormValue(fieldRoomCapacity))
	if rawRooms != "" || rawCapacity != "" {
		n, err := csvio.ParsePositive(fieldRoomsAvailable, rawRooms)
		if err != nil {
			return 0, 0, WrapKind(op, ErrBadRequest, err)
		}
		c, err := csvio.ParsePositive(fieldRoomCapacity, rawCapacity)
		if err != nil {
			return 0, 0, WrapKind(op, ErrBadRequest, err)
		}
		return n, c, nil
	}

	data, err := h.uploads.part(r, op, fieldRoomsFile)
	if err != nil {
		return 0, 0, WrapKind(op, ErrBadRequest,
			fmt.Errorf("send %s and %s or a %s", fieldRoomsAvailable, fieldRoomCapacity, fieldRoomsFile))
	}
	n, c, err := csvio.ReadRoomParams(bytes.NewReader(data))
	if err != nil {
		return 0, 0, WrapKind(op, ErrBadRequest, err)
	}
	return n, c, nil
}

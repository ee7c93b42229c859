// Command roomstat prints live room occupancy from a running server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
)

type membersResponse struct {
	Room    domain.RoomKey   `json:"room"`
	Version uint64           `json:"version"`
	Count   int              `json:"count"`
	Members []core.MemberDTO `json:"members"`
}

func main() {
	addr := pflag.StringP("addr", "a", "http://localhost:8080", "server base URL")
	room := pflag.StringP("room", "r", "", "show members of one room instead of the room list")
	token := pflag.StringP("token", "t", os.Getenv("STUDYROOM_TOKEN"), "bearer token")
	noColor := pflag.Bool("no-color", false, "disable colored headers")
	pflag.Parse()

	if *noColor {
		color.Disable()
	}
	c := client{base: *addr, token: *token, http: &http.Client{Timeout: 5 * time.Second}}

	var err error
	if *room == "" {
		err = c.printRooms(os.Stdout)
	} else {
		err = c.printMembers(os.Stdout, *room)
	}
	if err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s %s", path, resp.Status, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c client) printRooms(w io.Writer) error {
	var out struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	if err := c.get("/api/rooms", &out); err != nil {
		return err
	}
	header(w, fmt.Sprintf("%d active rooms", len(out.Rooms)))

	table := newTable(w, "Room", "Members")
	for _, r := range out.Rooms {
		table.Append([]string{string(r.Key), strconv.Itoa(r.MemberCount)})
	}
	table.Render()
	return nil
}

func (c client) printMembers(w io.Writer, room string) error {
	var out membersResponse
	if err := c.get("/api/rooms/"+url.PathEscape(room)+"/members", &out); err != nil {
		return err
	}
	header(w, fmt.Sprintf("%s: %d members (v%d)", out.Room, out.Count, out.Version))

	table := newTable(w, "User", "Name", "Conn", "Muted", "Camera off", "Speaking")
	for _, m := range out.Members {
		table.Append([]string{
			string(m.ID),
			m.Username,
			string(m.ConnID),
			yesNo(m.Muted),
			yesNo(m.CameraOff),
			yesNo(m.Speaking),
		})
	}
	table.Render()
	return nil
}

func header(w io.Writer, s string) {
	fmt.Fprintln(w, color.New(color.BgBlack, color.FgGreen).Render("  ====== "+s+" ======"))
}

func newTable(w io.Writer, cols ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(cols)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// dhcpInfoEntry is one element of the dhcp-info array. Only the server
// address is used; other fields the controller reports are ignored.
type dhcpInfoEntry struct {
	ServerIPAddr *string `json:"server-ip-addr"`
}

// DHCPServers fetches the DHCP servers the controller has observed, in the
// order the controller reports them.
func (c *Client) DHCPServers(ctx context.Context, token Token) ([]netip.Addr, error) {
	data, err := c.Do(ctx, http.MethodGet, DHCPInfoPath, struct{}{}, token)
	if err != nil {
		return nil, err
	}
	servers, err := DecodeDHCPInfo(data)
	if err != nil {
		return nil, err
	}
	util.WithController(c.Host).WithField("count", len(servers)).Debug("dhcp servers observed")
	return servers, nil
}

// DecodeDHCPInfo parses a dhcp-info payload: a JSON array of objects each
// carrying "server-ip-addr". Order and duplicates are preserved.
func DecodeDHCPInfo(raw []byte) ([]netip.Addr, error) {
	var entries []*dhcpInfoEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, util.NewDecodeError("dhcp-info", err.Error())
	}

	servers := make([]netip.Addr, 0, len(entries))
	for i, e := range entries {
		if e == nil || e.ServerIPAddr == nil {
			return nil, util.NewDecodeError("dhcp-info", fmt.Sprintf("element %d has no server-ip-addr", i))
		}
		addr, err := util.ParseAddr(*e.ServerIPAddr)
		if err != nil {
			return nil, util.NewDecodeError("dhcp-info", fmt.Sprintf("element %d: %v", i, err))
		}
		servers = append(servers, addr)
	}
	return servers, nil
}

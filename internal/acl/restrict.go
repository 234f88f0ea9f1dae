package acl

import (
	"fmt"
	"os"

	"github.com/hookbot/git-hooks/internal/identity"
)

// blockedMessage is the exact text the spec requires on the blocked path.
const blockedMessage = "git-server: Your IP has been blocked."

// CheckIPRestriction implements the IP restrictor (§4.A). It exits 0
// (returns nil) when: no restriction is configured, there is no SSH
// context at all, or the client IP matches an allow-listed CIDR.
// Otherwise it writes the blocked message to stdout and returns a non-nil
// error the caller should translate into a non-zero exit.
func CheckIPRestriction(restrictIPConfig string) error {
	if restrictIPConfig == "" {
		return nil
	}

	if !identity.HasSSHContext() {
		return nil
	}

	list, warnings, err := ParseAllowList(restrictIPConfig)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "git-server: warning: %s\n", w)
	}
	if err != nil {
		// An entry that does not parse at all is fatal.
		return fmt.Errorf("acl.restrictip has an unparsable entry: %w", err)
	}

	clientIP, err := identity.ClientIPFromEnv()
	if err != nil {
		// HasSSHContext already returned true, so this should not happen,
		// but fail closed rather than silently allowing.
		return fmt.Errorf("unable to determine client IP: %w", err)
	}

	allowed, err := IPAllowed(list, clientIP)
	if err != nil {
		return fmt.Errorf("unable to evaluate client IP: %w", err)
	}
	if allowed {
		return nil
	}

	fmt.Println(blockedMessage)
	return fmt.Errorf("client IP %s not in acl.restrictip allow-list", clientIP)
}

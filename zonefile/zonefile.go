// Package zonefile renders record sets as zone files and saves them locally or
// on a remote host over SSH.
package zonefile

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/miekg/dns"

	"github.com/sapslaj/rrsets/model"
)

// DefaultTTL is written for record sets that carry no TTL of their own.
const DefaultTTL uint32 = 3600

type RenderOptions struct {
	// TTL for record sets without one. Zero uses DefaultTTL.
	TTL uint32
	// Template is a text/template rendered instead of the master file
	// format. It receives TemplateData.
	Template string
}

type TemplateData struct {
	Zone       string
	RecordSets []model.ResourceRecordSet
}

// Render writes rrsets of zone to w. Sets with a qualifier are preceded by a
// comment naming it since a master file has no way to express it. Sets with
// no records (Route 53 aliases) are written as comments only.
func Render(w io.Writer, zone string, rrsets []model.ResourceRecordSet, opts RenderOptions) error {
	if opts.Template != "" {
		return renderTemplate(w, zone, rrsets, opts.Template)
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "$ORIGIN %s\n$TTL %d\n", dns.Fqdn(zone), ttl)
	for _, rrset := range rrsets {
		if rrset.Qualifier != "" {
			fmt.Fprintf(&sb, "; qualifier %s\n", rrset.Qualifier)
		}
		if len(rrset.Records) == 0 {
			fmt.Fprintf(&sb, "; %s %s has no records\n", rrset.Name, rrset.Type)
			continue
		}
		setTTL := ttl
		if rrset.TTL != nil {
			setTTL = *rrset.TTL
		}
		for _, rdata := range rrset.Records {
			rr, err := dns.NewRR(fmt.Sprintf("%s %d IN %s %s", dns.Fqdn(rrset.Name), setTTL, rrset.Type, rdata.String()))
			if err != nil {
				return fmt.Errorf("zonefile: %s: %w", rrset.Key(), err)
			}
			if rr == nil {
				return fmt.Errorf("zonefile: %s: empty record", rrset.Key())
			}
			sb.WriteString(rr.String())
			sb.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func renderTemplate(w io.Writer, zone string, rrsets []model.ResourceRecordSet, text string) error {
	tpl, err := template.New(zone).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, TemplateData{Zone: zone, RecordSets: rrsets}); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

package model

// ReportDiff lists the links whose state changed between two reports.
type ReportDiff struct {
	// NewlyBroken are links broken in the newer report but not in the older one.
	NewlyBroken Report

	// Fixed are links broken in the older report but not in the newer one.
	Fixed Report
}

// HasChanges reports whether anything changed between the two reports.
func (d ReportDiff) HasChanges() bool {
	return !d.NewlyBroken.Empty() || !d.Fixed.Empty()
}

// CompareReports returns the difference between an older and a newer report.
// Links are matched by document and URL; a changed reason is not a change.
func CompareReports(older, newer Report) ReportDiff {
	return ReportDiff{
		NewlyBroken: subtract(newer, older),
		Fixed:       subtract(older, newer),
	}
}

// subtract returns the links of a that do not appear in b.
func subtract(a, b Report) Report {
	out := Report{}
	for doc, links := range a {
		seen := make(map[string]struct{}, len(b[doc]))
		for _, l := range b[doc] {
			seen[l.URL] = struct{}{}
		}
		for _, l := range links {
			if _, ok := seen[l.URL]; ok {
				continue
			}
			out[doc] = append(out[doc], l)
		}
	}
	for _, links := range out {
		SortLinks(links)
	}
	return out
}

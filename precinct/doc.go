// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package precinct restricts where a student may vote from.

# Assignment

A student's program is read from the election's roster snapshot
(eligible_voters.course_name), then looked up in
election_precinct_programs for the same election. At most one precinct
results. No roster row, an empty program, or an unmapped program means the
student is unrestricted.

# Decisions

	d := gate.ValidateAddress(ctx, studentID, electionID, middleware.GetClientIP(r))
	if err := d.Err(); err != nil {
		// denied
	}

  - no_assignment: allowed, open mode
  - matched: allowed, an active address record admitted the client
  - mismatch: denied, the message names the required precinct
  - lookup_failed: denied, storage could not answer (fails closed)

# Address Records

Client addresses are normalized first (Normalize): ports and brackets
dropped, ::ffff: stripped, loopback spellings folded to 127.0.0.1.

  - single: exact match against any stored spelling
  - range: numeric comparison, IPv4 as uint32, IPv6 via netip ordering
  - subnet: wildcard pattern (192.168.1.*), CIDR, or network + dotted mask

Inactive records never match.
*/
package precinct

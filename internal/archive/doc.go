// Package archive packages a resolved ticket into the resolution tree and
// verifies packages after the fact.
//
// A package lives at resolution/<customerId>_<company>/ and always carries
// the five subdirectories listed in Subdirectories, a TICKET_SUMMARY.md index,
// and metadata/{ticket_metadata,timeline}.json. Intake artifacts are copied
// from the ticket's processing folder when one can be found; a missing intake
// folder degrades to a warning so an analyst can still archive by hand.
package archive

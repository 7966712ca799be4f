// Package fsops defines the small filesystem capability surface the
// mirroring engine runs on, plus the link primitive built on top of it.
//
// The engine only ever needs: existence checks that do not dereference
// links, directory listing, symlink creation, entry removal, and link-target
// reads. Keeping those behind an interface keeps the merge and watch logic
// platform-neutral and lets tests substitute failing filesystems.
package fsops

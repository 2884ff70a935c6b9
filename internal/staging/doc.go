// Package staging finds and removes scratch files arena leaves behind when a
// composite or export is interrupted: unmoved composite outputs and label
// directories in work_dir, and half-written archive temporaries next to
// their destination.
package staging

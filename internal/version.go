package internal

// Version is the current poplingo release.
const Version = "0.3.0"

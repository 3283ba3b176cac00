package ignore

// DefaultIgnorePatterns are gitignore-syntax patterns applied beneath every
// collected directory, after any ignore files. They cover version-control
// metadata and OS or editor droppings that never belong in a prompt.
// Anything else (images, archives, lock files) may be a deliberate attachment,
// so it is left to the user's ignore files.
var DefaultIgnorePatterns = []string{
	// Version control
	".git/",
	".svn/",
	".hg/",

	// OS files
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// Editor swap and backup files
	"*.swp",
	"*.swo",
	"*~",
}

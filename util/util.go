package util

import "fmt"

type VersionType struct {
	Major    uint
	Minor    uint
	Revision uint
}

var Version = VersionType{
	Major:    0,
	Minor:    3,
	Revision: 0,
}

// String formats the version as major.minor.revision
func (v VersionType) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

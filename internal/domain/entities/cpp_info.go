package entities

// Generator names used as keys of CppInfo.Names
const (
	GeneratorCMakeFindPackage      = "cmake_find_package"
	GeneratorCMakeFindPackageMulti = "cmake_find_package_multi"
)

// CppInfo is the consumer-facing description of a built C/C++ package
type CppInfo struct {
	Names       map[string]string
	Libs        []string
	IncludeDirs []string
	LibDirs     []string
	BinDirs     []string
	Defines     []string
	SystemLibs  []string
}

// NewCppInfo returns a CppInfo with the conventional folder defaults
func NewCppInfo() *CppInfo {
	return &CppInfo{
		Names:       make(map[string]string),
		IncludeDirs: []string{"include"},
		LibDirs:     []string{"lib"},
		BinDirs:     []string{"bin"},
	}
}

// Name returns the package name for a generator, falling back to def
func (c *CppInfo) Name(generator, def string) string {
	if n, ok := c.Names[generator]; ok && n != "" {
		return n
	}
	return def
}

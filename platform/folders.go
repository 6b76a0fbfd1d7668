package platform

// Special-folder tokens reported by DetectFolders. Each system fills in every
// token; where an OS has no distinct common variant the user folder is used.
const (
	FolderProgramFiles     = "pf"
	FolderUserProgramFiles = "userpf"
	FolderCommonPrograms   = "commonprograms"
	FolderUserPrograms     = "userprograms"
	FolderCommonDesktop    = "commondesktop"
	FolderUserDesktop      = "userdesktop"
	FolderCommonStartup    = "commonstartup"
	FolderUserStartup      = "userstartup"
	FolderCommonAppData    = "commonappdata"
	FolderUserAppData      = "userappdata"
	FolderLocalAppData     = "localappdata"
	FolderTemp             = "tmp"
)

// FolderTokens lists every token DetectFolders reports.
var FolderTokens = []string{
	FolderProgramFiles,
	FolderUserProgramFiles,
	FolderCommonPrograms,
	FolderUserPrograms,
	FolderCommonDesktop,
	FolderUserDesktop,
	FolderCommonStartup,
	FolderUserStartup,
	FolderCommonAppData,
	FolderUserAppData,
	FolderLocalAppData,
	FolderTemp,
}

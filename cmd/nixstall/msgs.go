package main

// Short messages (one-liners)
const (
	MsgRootShort    = "Writes and installs a NixOS system configuration"
	MsgRunShort     = "Run the full configure-and-install pipeline"
	MsgRenderShort  = "Render configuration.nix to stdout without installing"
	MsgVersionShort = "Print version information"

	// Status messages
	MsgInstallDone = "Installation finished."
)

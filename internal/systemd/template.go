package systemd

// ServerTemplate returns the systemd unit for gateward-server.service.
// The server runs under a dedicated user with filesystem hardening and
// resource limits suitable for a long-lived screening daemon.
func ServerTemplate() string {
	return `[Unit]
Description=Gateward screening server
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=gateward
ExecStart=/usr/local/bin/gateward serve
Restart=on-failure
RestartSec=2
ReadWritePaths=/var/lib/gateward /var/log/gateward
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=read-only
ProtectKernelTunables=true
RestrictNamespaces=true
MemoryDenyWriteExecute=true
CPUQuota=30%
MemoryMax=512M
TasksMax=50

[Install]
WantedBy=multi-user.target
`
}

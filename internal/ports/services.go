package ports

// UnknownService is reported for ports missing from the well-known table.
const UnknownService = "unknown"

var tcpServices = map[uint16]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	135:  "msrpc",
	139:  "netbios-ssn",
	143:  "imap",
	443:  "https",
	445:  "microsoft-ds",
	465:  "smtps",
	587:  "submission",
	993:  "imaps",
	995:  "pop3s",
	1723: "pptp",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	5900: "vnc",
	6379: "redis",
	8080: "http-proxy",
	8443: "https-alt",
}

var udpServices = map[uint16]string{
	53:  "dns",
	67:  "dhcp",
	123: "ntp",
	137: "netbios-ns",
	161: "snmp",
	500: "isakmp",
}

// ServiceName returns the conventional service name for port.
func ServiceName(port uint16, udp bool) string {
	table := tcpServices
	if udp {
		table = udpServices
	}
	if name, ok := table[port]; ok {
		return name
	}
	return UnknownService
}

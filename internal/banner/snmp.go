package banner

import (
	"context"

	"github.com/gosnmp/gosnmp"
)

// sysDescrOID is SNMPv2-MIB::sysDescr.0.
const sysDescrOID = ".1.3.6.1.2.1.1.1.0"

func (g *Grabber) snmpSysDescr(ctx context.Context, host string, port uint16) string {
	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      port,
		Community: g.community,
		Version:   gosnmp.Version2c,
		Timeout:   g.readTimeout,
		Retries:   0,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		g.logger.Debug("snmp connect failed", "host", host, "error", err)
		return ""
	}
	defer client.Conn.Close()

	res, err := client.Get([]string{sysDescrOID})
	if err != nil || res == nil || len(res.Variables) == 0 {
		g.logger.Debug("snmp get failed", "host", host, "error", err)
		return ""
	}

	v := res.Variables[0]
	if v.Type != gosnmp.OctetString {
		return ""
	}
	raw, ok := v.Value.([]byte)
	if !ok {
		return ""
	}
	return clean(raw)
}

package allowlist

// defaultTable is the node allowlist. It is never written after initialisation.
var defaultTable = Table{
	// moves funds: every parameter is mandatory
	"fundrawtransaction": exact(String, Array, String, Number),

	// identity and currency writes need an explicit true confirmation
	"recoveridentity":     guarded(1, Object, Boolean, Boolean, Float, String),
	"registeridentity":    guarded(1, Object, Boolean, Float, String),
	"revokeidentity":      guarded(1, String, Boolean, Boolean, Float, String),
	"updateidentity":      guarded(1, Object, Boolean, Boolean, Float, String),
	"setidentitytimelock": guarded(2, String, Object, Boolean, Float, String),
	"sendcurrency":        guarded(4, String, Array, Integer, Float, Boolean),

	"coinsupply":                  params(),
	"convertpassphrase":           params(String),
	"createmultisig":              params(Integer, Array),
	"createrawtransaction":        params(Array, Object, Integer, Integer),
	"decoderawtransaction":        params(String, Boolean),
	"decodescript":                params(String, Boolean),
	"estimateconversion":          params(Object),
	"estimatefee":                 params(Integer),
	"estimatepriority":            params(Integer),
	"getaddressmempool":           params(Object),
	"getaddressutxos":             params(Object),
	"getaddressbalance":           params(Object),
	"getaddressdeltas":            params(Object),
	"getaddresstxids":             params(Object),
	"getbestblockhash":            params(),
	"getbestproofroot":            params(Object),
	"getblock":                    params(String, Boolean),
	"getblockchaininfo":           params(),
	"getblockcount":               params(),
	"getblockhashes":              params(Integer, Integer),
	"getblockhash":                params(Integer),
	"getblockheader":              params(String),
	"getblocksubsidy":             params(Integer),
	"getblocktemplate":            params(Object),
	"getchaintips":                params(),
	"getcurrency":                 params(String),
	"getcurrencyconverters":       params(String, String, String),
	"getcurrencystate":            params(String),
	"getcurrencytrust":            params(Array),
	"getdifficulty":               params(),
	"getexports":                  params(String, Integer, Integer),
	"getinfo":                     params(),
	"getinitialcurrencystate":     params(String),
	"getidentitieswithaddress":    params(Object),
	"getidentitieswithrevocation": params(Object),
	"getidentitieswithrecovery":   params(Object),
	"getidentity":                 params(String, Integer, Boolean, Integer),
	"getidentitytrust":            params(Array),
	"getlastimportfrom":           params(String),
	"getimports":                  params(String, Integer, Integer),
	"getlaunchinfo":               params(String),
	"getmempoolinfo":              params(),
	"getmininginfo":               params(),
	"getnetworkinfo":              params(),
	"getnotarizationdata":         params(String),
	"getoffers":                   params(String, Boolean, Boolean),
	"getpendingtransfers":         params(String),
	"getrawmempool":               params(),
	"getrawtransaction":           params(String, Integer),
	"getreservedeposits":          params(String),
	"getsaplingtree":              params(Integer),
	"getspentinfo":                params(Object),
	"gettxout":                    params(String, Integer, Boolean),
	"gettxoutsetinfo":             params(),
	"getvdxfid":                   params(String, Object),
	"hashdata":                    params(String, String, String),
	"help":                        params(),
	"listcurrencies":              params(Object, Integer, Integer),
	"sendrawtransaction":          params(String),
	"submitacceptednotarization":  params(Object, Object),
	"submitimports":               params(Object),
	"verifymessage":               params(String, String, String, Boolean),
	"verifyhash":                  params(String, String, String, Boolean),
	"verifysignature":             params(Object),
}

package eth

// RedPacketABI 只保留服务端用到的方法和事件
const RedPacketABI = `[
  {"name":"packets","type":"function","stateMutability":"view",
   "inputs":[{"name":"packetId","type":"uint256"}],
   "outputs":[
     {"name":"creator","type":"address"},
     {"name":"totalAmount","type":"uint256"},
     {"name":"remainingAmount","type":"uint256"},
     {"name":"totalClaims","type":"uint16"},
     {"name":"claimedCount","type":"uint16"},
     {"name":"expiry","type":"uint48"},
     {"name":"isRandom","type":"bool"},
     {"name":"refunded","type":"bool"}]},
  {"name":"claim","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"packetId","type":"uint256"},
     {"name":"twitterUserId","type":"string"},
     {"name":"nonce","type":"uint256"},
     {"name":"signature","type":"bytes"}],
   "outputs":[]},
  {"type":"event","name":"PacketCreated","anonymous":false,
   "inputs":[
     {"name":"packetId","type":"uint256","indexed":true},
     {"name":"creator","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false},
     {"name":"totalClaims","type":"uint16","indexed":false},
     {"name":"isRandom","type":"bool","indexed":false},
     {"name":"expiry","type":"uint48","indexed":false}]},
  {"type":"event","name":"PacketClaimed","anonymous":false,
   "inputs":[
     {"name":"packetId","type":"uint256","indexed":true},
     {"name":"claimer","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false},
     {"name":"claimIndex","type":"uint16","indexed":false}]}
]`
